package catalog

import (
	"context"
	"fmt"
	"time"

	"launcher/internal/domain"
	"launcher/internal/registry"
)

// BuilderOptions configures snapshot building.
type BuilderOptions struct {
	// JavaLTSVersions are the candidate Java versions of every stream.
	JavaLTSVersions []int

	// JavaExclusions removes Java versions per platform key.
	JavaExclusions map[string][]int
}

// Builder turns a fetched platform catalog into a Snapshot. Member extension
// catalogs are fetched per stream through the fetcher.
type Builder struct {
	fetcher registry.Fetcher
	opts    BuilderOptions
	now     func() time.Time
}

// NewBuilder creates a builder.
func NewBuilder(fetcher registry.Fetcher, opts BuilderOptions) *Builder {
	if len(opts.JavaLTSVersions) == 0 {
		opts.JavaLTSVersions = DefaultJavaLTSVersions
	}
	return &Builder{
		fetcher: fetcher,
		opts:    opts,
		now:     time.Now,
	}
}

// Build resolves every platform stream and assembles the snapshot. Streams
// without extensions or without a compatible Java version are dropped.
func (b *Builder) Build(ctx context.Context, catalog *registry.PlatformCatalog) (*domain.Snapshot, error) {
	log := getLogger("builder")

	if catalog == nil {
		return nil, fmt.Errorf("%w: platform catalog not found", domain.ErrBuildInvariant)
	}
	timestamp := catalog.LastUpdated()
	if timestamp == "" {
		return nil, fmt.Errorf("%w: platform last updated date is empty", domain.ErrBuildInvariant)
	}
	recommendedPlatform := catalog.RecommendedPlatform()
	recommendedStream := recommendedPlatform.RecommendedStream()
	if recommendedStream == nil {
		return nil, fmt.Errorf("%w: no recommended platform stream", domain.ErrBuildInvariant)
	}
	recommendedKey := domain.StreamKey(recommendedPlatform.PlatformKey, recommendedStream.ID)

	var platforms []*domain.PlatformInfo
	for pi := range catalog.Platforms {
		platform := &catalog.Platforms[pi]
		for si := range platform.Streams {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			stream := &platform.Streams[si]
			key := domain.StreamKey(platform.PlatformKey, stream.ID)
			release := stream.RecommendedRelease()
			if release == nil {
				log.Warn("dropping stream without release", "stream", key)
				continue
			}

			extCatalog, err := b.fetcher.FetchExtensionCatalog(ctx, *release)
			if err != nil {
				return nil, fmt.Errorf("%w: stream %s: %w", domain.ErrFetch, key, err)
			}

			info, err := b.buildStream(platform.PlatformKey, key, stream, release, extCatalog, key == recommendedKey)
			if err != nil {
				return nil, err
			}
			if info != nil {
				platforms = append(platforms, info)
			}
		}
	}

	snapshot, err := domain.NewSnapshot(recommendedKey, platforms, timestamp, b.now().UTC())
	if err != nil {
		return nil, err
	}

	log.Debug("snapshot built",
		"source_timestamp", timestamp,
		"streams", snapshot.Len(),
		"recommended", recommendedKey,
	)
	return snapshot, nil
}

func (b *Builder) buildStream(platformKey, key string, stream *registry.Stream, release *registry.PlatformRelease, extCatalog *registry.ExtensionCatalog, recommended bool) (*domain.PlatformInfo, error) {
	log := getLogger("builder")

	extensions := ProjectExtensions(extCatalog)
	if len(extensions) == 0 {
		log.Warn("dropping stream without extensions", "stream", key)
		return nil, nil
	}

	compat, ok := ComputeJavaCompatibility(extCatalog, b.opts.JavaLTSVersions, b.opts.JavaExclusions[platformKey])
	if !ok {
		log.Warn("dropping stream without compatible Java version",
			"stream", key,
			"minimum_java_version", MinimumJavaVersion(extCatalog),
		)
		return nil, nil
	}

	coreVersion := release.QuarkusCoreVersion
	if coreVersion == "" {
		coreVersion = extCatalog.QuarkusCoreVersion
	}

	info := domain.StreamInfo{
		Key:               key,
		CoreVersion:       coreVersion,
		JavaCompatibility: compat,
		PlatformVersion:   release.Version,
		Recommended:       recommended,
		Status:            domain.StreamStatus(coreVersion),
		LTS:               stream.LTS(),
	}
	return domain.NewPlatformInfo(platformKey, info, extensions)
}
