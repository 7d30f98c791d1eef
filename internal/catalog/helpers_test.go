package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"launcher/internal/domain"
	"launcher/internal/generator"
	"launcher/internal/registry"
)

const testTimestamp = "2024-10-01T10:00:00Z"

// fakeFetcher serves an in-memory registry. Extension catalogs are keyed by
// release version.
type fakeFetcher struct {
	mu          sync.Mutex
	platforms   *registry.PlatformCatalog
	catalogs    map[string]*registry.ExtensionCatalog
	platformErr error
	catalogErr  error
	calls       int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		platforms: testPlatformCatalog(testTimestamp),
		catalogs: map[string]*registry.ExtensionCatalog{
			"3.15.1":     testExtensionCatalog("3.15.1", "21"),
			"3.16.0.CR1": testExtensionCatalog("3.16.0.CR1", ""),
		},
	}
}

func (f *fakeFetcher) FetchPlatforms(ctx context.Context) (*registry.PlatformCatalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.platformErr != nil {
		return nil, f.platformErr
	}
	cp := *f.platforms
	return &cp, nil
}

func (f *fakeFetcher) FetchExtensionCatalog(ctx context.Context, release registry.PlatformRelease) (*registry.ExtensionCatalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	cat, ok := f.catalogs[release.Version]
	if !ok {
		return nil, fmt.Errorf("%s: %w", release.Version, registry.ErrNotFound)
	}
	return cat, nil
}

func (f *fakeFetcher) setTimestamp(ts string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platforms = testPlatformCatalog(ts)
}

func (f *fakeFetcher) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testPlatformCatalog(ts string) *registry.PlatformCatalog {
	return &registry.PlatformCatalog{
		Metadata: registry.Metadata{registry.MetadataLastUpdated: ts},
		Platforms: []registry.Platform{
			{
				PlatformKey: "io.quarkus.platform",
				Streams: []registry.Stream{
					{
						ID:       "3.15",
						Metadata: registry.Metadata{registry.MetadataLTS: true},
						Releases: []registry.PlatformRelease{{
							Version:            "3.15.1",
							QuarkusCoreVersion: "3.15.1",
							MemberBOMs:         []string{"io.quarkus.platform:quarkus-bom::pom:3.15.1"},
						}},
					},
					{
						ID: "3.16",
						Releases: []registry.PlatformRelease{{
							Version:            "3.16.0.CR1",
							QuarkusCoreVersion: "3.16.0.CR1",
							MemberBOMs:         []string{"io.quarkus.platform:quarkus-bom::pom:3.16.0.CR1"},
						}},
					},
				},
			},
		},
	}
}

func testExtensionCatalog(version, recommendedJava string) *registry.ExtensionCatalog {
	md := registry.Metadata{registry.MetadataMinimumJavaVersion: "17"}
	if recommendedJava != "" {
		md[registry.MetadataRecommendedJavaVersion] = recommendedJava
	}
	origin := []registry.Origin{{ID: "io.quarkus.platform:quarkus-bom-quarkus-platform-descriptor:" + version, Platform: true, BOM: "io.quarkus.platform:quarkus-bom::pom:" + version}}
	ext := func(name, artifactID string, md registry.Metadata) registry.Extension {
		return registry.Extension{
			Name:     name,
			Artifact: "io.quarkus:" + artifactID + "::jar:" + version,
			Origins:  origin,
			Metadata: md,
		}
	}
	return &registry.ExtensionCatalog{
		ID:                 "io.quarkus.platform:quarkus-bom-quarkus-platform-descriptor:" + version,
		Platform:           true,
		BOM:                "io.quarkus.platform:quarkus-bom::pom:" + version,
		QuarkusCoreVersion: version,
		Metadata:           md,
		Categories: []registry.Category{
			{ID: "web", Name: "Web"},
			{ID: "data", Name: "Data"},
		},
		Extensions: []registry.Extension{
			ext("Hibernate ORM", "quarkus-hibernate-orm", registry.Metadata{
				registry.MetadataCategories: []any{"data"},
			}),
			ext("REST", "quarkus-rest", registry.Metadata{
				registry.MetadataCategories: []any{"web"},
				registry.MetadataKeywords:   []any{"jaxrs"},
				"status":                    "stable",
				registry.MetadataCodestart:  map[string]any{"name": "rest"},
			}),
			ext("REST Jackson", "quarkus-rest-jackson", registry.Metadata{
				registry.MetadataCategories: []any{"web"},
				"status":                    "preview",
			}),
			ext("Hibernate Validator", "quarkus-hibernate-validator", registry.Metadata{
				registry.MetadataCategories: []any{"web"},
			}),
			ext("Spring Web", "quarkus-spring-web", nil),
			ext("Internal", "quarkus-internal", registry.Metadata{
				registry.MetadataUnlisted: true,
			}),
		},
	}
}

// testSnapshot builds a snapshot from the fake registry.
func testSnapshot(t *testing.T, f *fakeFetcher) *domain.Snapshot {
	t.Helper()
	catalog, err := f.FetchPlatforms(context.Background())
	if err != nil {
		t.Fatalf("FetchPlatforms() error = %v", err)
	}
	snap, err := NewBuilder(f, BuilderOptions{}).Build(context.Background(), catalog)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return snap
}

// funcGenerator adapts a function to generator.Generator.
type funcGenerator func(ctx context.Context, req generator.Request) (*generator.Result, error)

func (f funcGenerator) Generate(ctx context.Context, req generator.Request) (*generator.Result, error) {
	return f(ctx, req)
}

// testCanaries only reference extensions of the fake registry.
func testCanaries() []Canary {
	return []Canary{
		{Name: "rest", Extensions: []string{"rest", "rest-jackson", "hibernate-validator"}},
		{Name: "spring-web", Extensions: []string{"spring-web"}},
	}
}

func newTestRefresher(f *fakeFetcher, gen generator.Generator) (*Refresher, *Store) {
	if gen == nil {
		gen = generator.NoopGenerator{}
	}
	store := NewStore()
	validator := NewValidator(gen, ValidatorOptions{Timeout: 5 * time.Second, Canaries: testCanaries()}, nil)
	return NewRefresher(f, NewBuilder(f, BuilderOptions{}), validator, store, nil), store
}
