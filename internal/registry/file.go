package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// CatalogFile is an offline registry snapshot: the platform catalog plus the
// member extension catalogs keyed by member BOM coordinates.
type CatalogFile struct {
	Platforms PlatformCatalog             `json:"platforms" yaml:"platforms"`
	Catalogs  map[string]ExtensionCatalog `json:"catalogs" yaml:"catalogs"`
}

// FileFetcher serves catalogs from a YAML or JSON CatalogFile. The file is
// re-read on every FetchPlatforms call so edits are picked up by the next
// refresh.
type FileFetcher struct {
	path string

	mu sync.Mutex
	// current is the document read by the last FetchPlatforms call.
	current *CatalogFile
}

// NewFileFetcher creates a fetcher reading path.
func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

// FetchPlatforms implements Fetcher.
func (f *FileFetcher) FetchPlatforms(ctx context.Context) (*PlatformCatalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := ReadCatalogFile(f.path)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.current = doc
	f.mu.Unlock()
	platforms := doc.Platforms
	return &platforms, nil
}

// FetchExtensionCatalog implements Fetcher.
func (f *FileFetcher) FetchExtensionCatalog(ctx context.Context, release PlatformRelease) (*ExtensionCatalog, error) {
	f.mu.Lock()
	doc := f.current
	f.mu.Unlock()
	if doc == nil {
		var err error
		if doc, err = ReadCatalogFile(f.path); err != nil {
			return nil, err
		}
	}
	return fetchMembers(ctx, release, func(ctx context.Context, bom ArtifactCoords) (*ExtensionCatalog, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, key := range []string{bom.GAV(), bom.Key() + "::pom:" + bom.Version} {
			if member, ok := doc.Catalogs[key]; ok {
				return &member, nil
			}
		}
		return nil, fmt.Errorf("%s: %w", bom.GAV(), ErrNotFound)
	})
}

// ReadCatalogFile decodes a catalog file. Files ending in .json are decoded as
// JSON, anything else as YAML.
func ReadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var doc CatalogFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	return &doc, nil
}
