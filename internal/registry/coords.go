package registry

import (
	"fmt"
	"strings"
)

// ArtifactCoords are Maven coordinates.
type ArtifactCoords struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Type       string
	Version    string
}

// ParseCoords parses "g:a:v", "g:a:type:v" or "g:a:classifier:type:v".
func ParseCoords(s string) (ArtifactCoords, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var c ArtifactCoords
	switch len(parts) {
	case 3:
		c = ArtifactCoords{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	case 4:
		c = ArtifactCoords{GroupID: parts[0], ArtifactID: parts[1], Type: parts[2], Version: parts[3]}
	case 5:
		c = ArtifactCoords{GroupID: parts[0], ArtifactID: parts[1], Classifier: parts[2], Type: parts[3], Version: parts[4]}
	default:
		return ArtifactCoords{}, fmt.Errorf("invalid artifact coordinates %q", s)
	}
	if c.GroupID == "" || c.ArtifactID == "" || c.Version == "" {
		return ArtifactCoords{}, fmt.Errorf("invalid artifact coordinates %q", s)
	}
	return c, nil
}

// Key returns "groupId:artifactId".
func (c ArtifactCoords) Key() string {
	return c.GroupID + ":" + c.ArtifactID
}

// GAV returns "groupId:artifactId:version".
func (c ArtifactCoords) GAV() string {
	return c.GroupID + ":" + c.ArtifactID + ":" + c.Version
}

// DescriptorPath returns the repository path of the platform descriptor JSON
// published next to a platform BOM.
func (c ArtifactCoords) DescriptorPath() string {
	artifact := c.ArtifactID + "-quarkus-platform-descriptor"
	return strings.ReplaceAll(c.GroupID, ".", "/") + "/" + artifact + "/" + c.Version + "/" +
		artifact + "-" + c.Version + "-" + c.Version + ".json"
}
