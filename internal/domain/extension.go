package domain

import (
	"slices"
	"strings"
)

// CoreGroupPrefix is the group prefix of extensions shipped with the core
// platform. It breaks ties between extensions sharing a shortcut.
const CoreGroupPrefix = "io.quarkus"

// ExtensionRef identifies one resolvable extension of a stream.
type ExtensionRef struct {
	// ID is the fully qualified "groupId:artifactId" identifier.
	ID string `json:"id"`

	// Version is the extension version.
	Version string `json:"version"`

	// Platform is true when the version is governed by the platform BOM.
	Platform bool `json:"platform"`
}

// Canonical returns the identifier handed to the project generator.
// Platform extensions are left unqualified so the generator infers their
// version from the BOM; all others are pinned.
func (r ExtensionRef) Canonical() string {
	if r.Platform {
		return r.ID
	}
	return r.ID + ":" + r.Version
}

// ExtensionInfo is the public projection of a cataloged extension.
type ExtensionInfo struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ShortName   string `json:"shortName"`
	Category    string `json:"category"`

	// Tags are "key:value" pairs derived from status and support metadata.
	Tags []string `json:"tags"`

	// Keywords is a sorted set of search keywords.
	Keywords []string `json:"keywords"`

	// TransitiveExtensions lists the extension ids this extension pulls in.
	TransitiveExtensions []string `json:"transitiveExtensions"`

	// Order is the stable rank assigned at build time: categories in catalog
	// order, then extensions in their declared order within the category.
	Order int `json:"order"`

	Platform     bool   `json:"platform"`
	BOM          string `json:"bom,omitempty"`
	Guide        string `json:"guide,omitempty"`
	ProvidesCode bool   `json:"providesCode"`
}

// Ref returns the resolvable reference for this extension.
func (e ExtensionInfo) Ref() ExtensionRef {
	return ExtensionRef{ID: e.ID, Version: e.Version, Platform: e.Platform}
}

// clone returns a copy that shares no slices with e.
func (e ExtensionInfo) clone() ExtensionInfo {
	e.Tags = slices.Clone(e.Tags)
	e.Keywords = slices.Clone(e.Keywords)
	e.TransitiveExtensions = slices.Clone(e.TransitiveExtensions)
	return e
}

// Shortcut strips an optional "group:" prefix and an optional "quarkus-"
// prefix from an extension identifier.
func Shortcut(id string) string {
	if i := strings.IndexByte(id, ':'); i > 0 {
		id = id[i+1:]
	}
	return strings.TrimPrefix(id, "quarkus-")
}
