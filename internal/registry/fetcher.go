package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fetcher retrieves raw catalogs from a registry.
type Fetcher interface {
	// FetchPlatforms returns the platform catalog of the registry.
	FetchPlatforms(ctx context.Context) (*PlatformCatalog, error)

	// FetchExtensionCatalog returns the merged extension catalog of a release.
	FetchExtensionCatalog(ctx context.Context, release PlatformRelease) (*ExtensionCatalog, error)
}

// DefaultRegistryID is the registry used when none is configured.
const DefaultRegistryID = "registry.quarkus.io"

// HTTPFetcher reads catalogs from a registry over HTTP. Platforms are served
// under /client/platforms, member descriptors under the /maven repository.
type HTTPFetcher struct {
	baseURL string
	getter  Getter
}

// NewHTTPFetcher creates a fetcher for the registry at baseURL.
func NewHTTPFetcher(baseURL string, getter Getter) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		getter:  getter,
	}
}

// BaseURLFor returns the URL of a registry. An explicit URL wins; otherwise the
// registry id is treated as a host name.
func BaseURLFor(url, registryID string) string {
	if url != "" {
		return strings.TrimRight(url, "/")
	}
	if registryID == "" {
		registryID = DefaultRegistryID
	}
	return "https://" + registryID
}

// FetchPlatforms implements Fetcher.
func (f *HTTPFetcher) FetchPlatforms(ctx context.Context) (*PlatformCatalog, error) {
	var catalog PlatformCatalog
	if err := f.getter.GetJSON(ctx, f.baseURL+"/client/platforms", &catalog); err != nil {
		return nil, fmt.Errorf("fetching platform catalog: %w", err)
	}
	return &catalog, nil
}

// FetchExtensionCatalog implements Fetcher.
func (f *HTTPFetcher) FetchExtensionCatalog(ctx context.Context, release PlatformRelease) (*ExtensionCatalog, error) {
	return fetchMembers(ctx, release, func(ctx context.Context, bom ArtifactCoords) (*ExtensionCatalog, error) {
		var member ExtensionCatalog
		if err := f.getter.GetJSON(ctx, f.baseURL+"/maven/"+bom.DescriptorPath(), &member); err != nil {
			return nil, err
		}
		return &member, nil
	})
}

func fetchMembers(ctx context.Context, release PlatformRelease, fetch func(context.Context, ArtifactCoords) (*ExtensionCatalog, error)) (*ExtensionCatalog, error) {
	if len(release.MemberBOMs) == 0 {
		return nil, fmt.Errorf("release %s has no member BOMs", release.Version)
	}

	members := make([]*ExtensionCatalog, 0, len(release.MemberBOMs))
	for _, raw := range release.MemberBOMs {
		bom, err := ParseCoords(raw)
		if err != nil {
			return nil, fmt.Errorf("release %s: %w", release.Version, err)
		}
		member, err := fetch(ctx, bom)
		if err != nil {
			return nil, fmt.Errorf("fetching member catalog %s: %w", raw, err)
		}
		if member.BOM == "" {
			member.BOM = raw
		}
		members = append(members, member)
	}

	getLogger("fetcher").Debug("fetched release members",
		"release", release.Version,
		"members", len(members),
	)

	return MergeCatalogs(members...), nil
}

// MergeCatalogs merges the member catalogs of a release. The first member is
// the primary one and provides the catalog identity and metadata. Extensions
// and categories are deduplicated, the first occurrence wins. Extensions
// without origins are attributed to the member that listed them.
func MergeCatalogs(members ...*ExtensionCatalog) *ExtensionCatalog {
	if len(members) == 0 {
		return nil
	}

	primary := members[0]
	merged := &ExtensionCatalog{
		ID:                 primary.ID,
		Platform:           primary.Platform,
		BOM:                primary.BOM,
		QuarkusCoreVersion: primary.QuarkusCoreVersion,
		Metadata:           primary.Metadata,
	}

	seenExt := make(map[string]struct{})
	seenCat := make(map[string]struct{})
	for _, member := range members {
		if member == nil {
			continue
		}
		for _, ext := range member.Extensions {
			key := ext.Artifact
			if coords, err := ext.Coords(); err == nil {
				key = coords.Key()
			}
			if _, dup := seenExt[key]; dup {
				continue
			}
			seenExt[key] = struct{}{}
			if len(ext.Origins) == 0 {
				ext.Origins = []Origin{{ID: member.ID, Platform: member.Platform, BOM: member.BOM}}
			}
			merged.Extensions = append(merged.Extensions, ext)
		}
		for _, cat := range member.Categories {
			if _, dup := seenCat[cat.ID]; dup {
				continue
			}
			seenCat[cat.ID] = struct{}{}
			merged.Categories = append(merged.Categories, cat)
		}
	}
	return merged
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
