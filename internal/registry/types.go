// Package registry fetches platform and extension catalogs from an extension
// registry and decodes them into the registry's raw wire model.
//
// The types in this file mirror the registry JSON documents. They are
// consumed by the catalog builder and never exposed to readers directly.
package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata keys understood by the catalog builder.
const (
	MetadataLastUpdated            = "last-updated"
	MetadataLTS                    = "lts"
	MetadataMinimumJavaVersion     = "minimum-java-version"
	MetadataRecommendedJavaVersion = "recommended-java-version"
	MetadataUnlisted               = "unlisted"
	MetadataShortName              = "short-name"
	MetadataKeywords               = "keywords"
	MetadataCategories             = "categories"
	MetadataGuide                  = "guide"
	MetadataCodestart              = "codestart"
	MetadataExtensionDependencies  = "extension-dependencies"
)

// Metadata is a free-form metadata map as found in registry documents.
type Metadata map[string]any

// PlatformCatalog lists the platforms a registry publishes. The first platform
// is the recommended one.
type PlatformCatalog struct {
	Platforms []Platform `json:"platforms" yaml:"platforms"`
	Metadata  Metadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// LastUpdated returns the registry timestamp of the catalog, or "" when absent.
func (c *PlatformCatalog) LastUpdated() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Metadata.String(MetadataLastUpdated))
}

// RecommendedPlatform returns the first platform, or nil for an empty catalog.
func (c *PlatformCatalog) RecommendedPlatform() *Platform {
	if c == nil || len(c.Platforms) == 0 {
		return nil
	}
	return &c.Platforms[0]
}

// Platform is a family of streams sharing a platform key.
type Platform struct {
	PlatformKey string   `json:"platform-key" yaml:"platform-key"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Streams     []Stream `json:"streams" yaml:"streams"`
	Metadata    Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// RecommendedStream returns the first stream, or nil when there is none.
func (p *Platform) RecommendedStream() *Stream {
	if p == nil || len(p.Streams) == 0 {
		return nil
	}
	return &p.Streams[0]
}

// Stream is a release line of a platform. The first release is the
// recommended one.
type Stream struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Releases []PlatformRelease `json:"releases" yaml:"releases"`
	Metadata Metadata          `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// RecommendedRelease returns the first release, or nil when there is none.
func (s *Stream) RecommendedRelease() *PlatformRelease {
	if s == nil || len(s.Releases) == 0 {
		return nil
	}
	return &s.Releases[0]
}

// LTS reports whether the stream is flagged as long term support.
func (s *Stream) LTS() bool {
	return s.Metadata.Bool(MetadataLTS)
}

// PlatformRelease is one version of a stream, made of one or more member BOMs.
type PlatformRelease struct {
	Version            string   `json:"version" yaml:"version"`
	QuarkusCoreVersion string   `json:"quarkus-core-version" yaml:"quarkus-core-version"`
	MemberBOMs         []string `json:"member-boms" yaml:"member-boms"`
}

// ExtensionCatalog is the extension descriptor of a platform release member.
// Member catalogs of a release are merged with MergeCatalogs.
type ExtensionCatalog struct {
	ID                 string      `json:"id" yaml:"id"`
	Platform           bool        `json:"platform" yaml:"platform"`
	BOM                string      `json:"bom" yaml:"bom"`
	QuarkusCoreVersion string      `json:"quarkus-core-version,omitempty" yaml:"quarkus-core-version,omitempty"`
	Extensions         []Extension `json:"extensions" yaml:"extensions"`
	Categories         []Category  `json:"categories,omitempty" yaml:"categories,omitempty"`
	Metadata           Metadata    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Extension is a raw extension entry.
type Extension struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Artifact    string   `json:"artifact" yaml:"artifact"`
	Origins     []Origin `json:"origins,omitempty" yaml:"origins,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Coords parses the artifact coordinates of the extension.
func (e *Extension) Coords() (ArtifactCoords, error) {
	return ParseCoords(e.Artifact)
}

// HasPlatformOrigin reports whether any origin is a platform catalog.
func (e *Extension) HasPlatformOrigin() bool {
	for _, o := range e.Origins {
		if o.Platform {
			return true
		}
	}
	return false
}

// Origin names the catalog an extension was published by.
type Origin struct {
	ID       string `json:"id" yaml:"id"`
	Platform bool   `json:"platform" yaml:"platform"`
	BOM      string `json:"bom,omitempty" yaml:"bom,omitempty"`
}

// Category groups extensions for display.
type Category struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// String returns a scalar metadata value as a string.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return scalarString(v)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Strings returns a metadata value as a list. Scalars become a one element
// list; absent keys yield nil.
func (m Metadata) Strings(key string) []string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, scalarString(item))
		}
		return out
	default:
		return []string{m.String(key)}
	}
}

// Bool returns a boolean metadata value. Strings "true" are accepted.
func (m Metadata) Bool(key string) bool {
	switch t := m[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// Int returns an integer metadata value. Numeric strings such as "17" are
// accepted; anything else reports false.
func (m Metadata) Int(key string) (int, bool) {
	s := strings.TrimSpace(m.String(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}
