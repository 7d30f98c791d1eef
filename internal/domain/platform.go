package domain

import (
	"fmt"
	"slices"
	"strings"
)

// PlatformInfo is one stream's resolved extension set. It owns the extension
// list and the id index derived from it; both are built together in
// NewPlatformInfo and never change afterwards.
type PlatformInfo struct {
	platformKey string
	stream      StreamInfo
	extensions  []ExtensionInfo
	byID        map[string]ExtensionRef
}

// NewPlatformInfo builds a PlatformInfo and its extension index. Two
// extensions with the same id must describe the same reference.
func NewPlatformInfo(platformKey string, stream StreamInfo, extensions []ExtensionInfo) (*PlatformInfo, error) {
	p := &PlatformInfo{
		platformKey: platformKey,
		stream:      stream.clone(),
		extensions:  make([]ExtensionInfo, 0, len(extensions)),
		byID:        make(map[string]ExtensionRef, len(extensions)),
	}
	for _, ext := range extensions {
		ref := ext.Ref()
		if existing, ok := p.byID[ext.ID]; ok {
			if existing != ref {
				return nil, fmt.Errorf("%w: duplicate extension %s in stream %s", ErrBuildInvariant, ext.ID, stream.Key)
			}
			continue
		}
		p.byID[ext.ID] = ref
		p.extensions = append(p.extensions, ext.clone())
	}
	return p, nil
}

// PlatformKey returns the key of the platform owning the stream.
func (p *PlatformInfo) PlatformKey() string { return p.platformKey }

// Stream returns a copy of the stream description.
func (p *PlatformInfo) Stream() StreamInfo { return p.stream.clone() }

// ExtensionCount returns the number of listed extensions.
func (p *PlatformInfo) ExtensionCount() int { return len(p.extensions) }

// Extensions returns a copy of the extension list in build order.
func (p *PlatformInfo) Extensions() []ExtensionInfo {
	out := make([]ExtensionInfo, len(p.extensions))
	for i, ext := range p.extensions {
		out[i] = ext.clone()
	}
	return out
}

// Lookup returns the reference registered under an exact id.
func (p *PlatformInfo) Lookup(id string) (ExtensionRef, bool) {
	ref, ok := p.byID[id]
	return ref, ok
}

// HasExtension reports whether id is an exact extension id of the stream.
func (p *PlatformInfo) HasExtension(id string) bool {
	_, ok := p.byID[id]
	return ok
}

// Resolve finds the single extension an identifier refers to. The identifier
// is tried as an exact id first, then by shortcut. When several extensions
// share the shortcut, the only one from the core group wins; anything else is
// an *InvalidExtensionError.
func (p *PlatformInfo) Resolve(id string) (ExtensionRef, error) {
	if ref, ok := p.byID[id]; ok {
		return ref, nil
	}

	shortcut := Shortcut(id)
	var found []ExtensionRef
	for extID, ref := range p.byID {
		if Shortcut(extID) == shortcut {
			found = append(found, ref)
		}
	}

	switch {
	case len(found) == 1:
		return found[0], nil
	case len(found) > 1:
		var core []ExtensionRef
		for _, ref := range found {
			if strings.HasPrefix(ref.ID, CoreGroupPrefix) {
				core = append(core, ref)
			}
		}
		if len(core) == 1 {
			return core[0], nil
		}
		candidates := make([]string, len(found))
		for i, ref := range found {
			candidates[i] = ref.ID
		}
		slices.Sort(candidates)
		return ExtensionRef{}, &InvalidExtensionError{ID: id, Candidates: candidates}
	}
	return ExtensionRef{}, &InvalidExtensionError{ID: id}
}

// ResolveExtensions canonicalizes caller supplied identifiers. Blank
// identifiers are ignored and duplicates collapse; the result is sorted.
// The first identifier that cannot be resolved fails the whole call.
func (p *PlatformInfo) ResolveExtensions(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		ref, err := p.Resolve(id)
		if err != nil {
			return nil, err
		}
		canonical := ref.Canonical()
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	slices.Sort(out)
	return out, nil
}
