package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"launcher/internal/domain"
	"launcher/internal/generator"
)

// ServiceOptions configures the query service.
type ServiceOptions struct {
	// Presets are the candidate presets; only those fully available in a
	// stream are served for it.
	Presets []domain.Preset

	// ReloadCron and RegistryID are reported by Health.
	ReloadCron string
	RegistryID string

	// RegistryBreakers, when set, reports the circuit breaker state per
	// registry host ("open" or "closed").
	RegistryBreakers func() map[string]string

	// RefreshInterval is the minimum interval between manual refreshes. Zero
	// disables throttling.
	RefreshInterval time.Duration
}

// ExtensionQuery filters extension listings.
type ExtensionQuery struct {
	// PlatformOnly keeps only extensions governed by the platform BOM.
	PlatformOnly bool

	// ID keeps only the extension with this exact id.
	ID string

	// Filter is an optional CEL predicate, see Filter.
	Filter string
}

// ProjectRequest is a caller's project description before resolution.
type ProjectRequest struct {
	Extensions  []string `json:"extensions"`
	JavaVersion int      `json:"javaVersion,omitempty"`
	BuildTool   string   `json:"buildTool,omitempty"`
	GroupID     string   `json:"groupId,omitempty"`
	ArtifactID  string   `json:"artifactId,omitempty"`
	Version     string   `json:"version,omitempty"`
	NoCode      bool     `json:"noCode,omitempty"`
}

// HealthStatus is the catalog state exposed to health checks.
type HealthStatus struct {
	Loaded                 bool              `json:"loaded" yaml:"loaded"`
	SourceTimestamp        string            `json:"sourceTimestamp,omitempty" yaml:"source_timestamp,omitempty"`
	BuiltAt                time.Time         `json:"builtAt,omitzero" yaml:"built_at,omitempty"`
	RecommendedStreamKey   string            `json:"recommendedStreamKey,omitempty" yaml:"recommended_stream_key,omitempty"`
	RecommendedCoreVersion string            `json:"recommendedCoreVersion,omitempty" yaml:"recommended_core_version,omitempty"`
	RecommendedExtensions  int               `json:"recommendedExtensions" yaml:"recommended_extensions"`
	Streams                []string          `json:"streams" yaml:"streams"`
	ReloadCron             string            `json:"reloadCron" yaml:"reload_cron"`
	RegistryID             string            `json:"registryId,omitempty" yaml:"registry_id,omitempty"`
	RegistryBreakers       map[string]string `json:"registryBreakers,omitempty" yaml:"registry_breakers,omitempty"`
	LastRefresh            *RefreshResult    `json:"lastRefresh,omitempty" yaml:"last_refresh,omitempty"`
}

// Service answers catalog queries against the published snapshot. Every
// operation loads the snapshot once, so its answer is consistent even when a
// refresh publishes concurrently.
type Service struct {
	store     *Store
	refresher *Refresher
	metrics   *Metrics
	opts      ServiceOptions
	limiter   *rate.Limiter
	filters   *filterCache
	presets   atomic.Pointer[[]domain.Preset]
}

// NewService creates the query service. refresher may be nil when manual
// refreshes are not offered.
func NewService(store *Store, refresher *Refresher, metrics *Metrics, opts ServiceOptions) (*Service, error) {
	filters, err := newFilterCache()
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if opts.RefreshInterval > 0 {
		limit = rate.Every(opts.RefreshInterval)
	}

	s := &Service{
		store:     store,
		refresher: refresher,
		metrics:   metrics,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		filters:   filters,
	}
	s.SetPresets(opts.Presets)
	return s, nil
}

// Snapshot returns the published snapshot.
func (s *Service) Snapshot() (*domain.Snapshot, error) {
	return s.store.Current()
}

// RecommendedStreamInfo returns the recommended stream.
func (s *Service) RecommendedStreamInfo() (domain.StreamInfo, error) {
	snap, err := s.store.Current()
	if err != nil {
		return domain.StreamInfo{}, err
	}
	return snap.Recommended().Stream(), nil
}

// StreamInfo returns a stream by full key or bare stream id.
func (s *Service) StreamInfo(key string) (domain.StreamInfo, error) {
	p, err := s.platform(key)
	if err != nil {
		return domain.StreamInfo{}, err
	}
	return p.Stream(), nil
}

// ListStreams returns every stream in catalog order.
func (s *Service) ListStreams() ([]domain.StreamInfo, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	return snap.Streams(), nil
}

// ListExtensions returns the extensions of a stream matching q, in order.
func (s *Service) ListExtensions(key string, q ExtensionQuery) ([]domain.ExtensionInfo, error) {
	p, err := s.platform(key)
	if err != nil {
		return nil, err
	}

	var filter *Filter
	if q.Filter != "" {
		if filter, err = s.filters.compile(q.Filter); err != nil {
			return nil, err
		}
	}

	all := p.Extensions()
	out := make([]domain.ExtensionInfo, 0, len(all))
	for _, ext := range all {
		if q.PlatformOnly && !ext.Platform {
			continue
		}
		if q.ID != "" && ext.ID != q.ID {
			continue
		}
		if filter != nil {
			ok, err := filter.Match(ext)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, ext)
	}
	return out, nil
}

// ResolveExtensions canonicalizes identifiers against a stream.
func (s *Service) ResolveExtensions(key string, ids []string) ([]string, error) {
	p, err := s.platform(key)
	if err != nil {
		return nil, err
	}
	out, err := p.ResolveExtensions(ids)
	s.metrics.observeResolution(err)
	return out, err
}

// ResolveProject resolves and validates a project request against a stream.
// The returned request is ready to hand to a Generator once OutputDir is set.
func (s *Service) ResolveProject(key string, pr ProjectRequest) (*generator.Request, error) {
	p, err := s.platform(key)
	if err != nil {
		return nil, err
	}

	extensions, err := p.ResolveExtensions(pr.Extensions)
	s.metrics.observeResolution(err)
	if err != nil {
		return nil, err
	}
	buildTool, err := generator.ParseBuildTool(pr.BuildTool)
	if err != nil {
		return nil, err
	}

	req := &generator.Request{
		Platform:    p,
		Extensions:  extensions,
		JavaVersion: pr.JavaVersion,
		BuildTool:   buildTool,
		GroupID:     pr.GroupID,
		ArtifactID:  pr.ArtifactID,
		Version:     pr.Version,
		NoCode:      pr.NoCode,
	}
	req.ApplyDefaults()
	if err := generator.ValidateRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Presets returns the presets available in a stream.
func (s *Service) Presets(key string) ([]domain.Preset, error) {
	p, err := s.platform(key)
	if err != nil {
		return nil, err
	}
	return domain.AvailablePresets(p, *s.presets.Load()), nil
}

// SetPresets replaces the candidate presets.
func (s *Service) SetPresets(presets []domain.Preset) {
	cp := slices.Clone(presets)
	s.presets.Store(&cp)
}

// Health reports the catalog state. It never fails.
func (s *Service) Health() HealthStatus {
	h := HealthStatus{
		ReloadCron: s.opts.ReloadCron,
		RegistryID: s.opts.RegistryID,
		Streams:    []string{},
	}
	if s.opts.RegistryBreakers != nil {
		h.RegistryBreakers = s.opts.RegistryBreakers()
	}
	if s.refresher != nil {
		if last, ok := s.refresher.Last(); ok {
			h.LastRefresh = &last
		}
	}

	snap, err := s.store.Current()
	if err != nil {
		return h
	}
	rec := snap.Recommended()
	h.Loaded = rec.ExtensionCount() > 0
	h.SourceTimestamp = snap.SourceTimestamp()
	h.BuiltAt = snap.BuiltAt()
	h.RecommendedStreamKey = snap.RecommendedStreamKey()
	h.RecommendedCoreVersion = rec.Stream().CoreVersion
	h.RecommendedExtensions = rec.ExtensionCount()
	h.Streams = snap.StreamKeys()
	return h
}

// TriggerRefresh runs a refresh cycle on demand. Calls closer together than
// the configured interval fail with ErrRefreshThrottled.
func (s *Service) TriggerRefresh(ctx context.Context) (RefreshResult, error) {
	if s.refresher == nil {
		return RefreshResult{}, fmt.Errorf("manual refresh not available")
	}
	if !s.limiter.Allow() {
		return RefreshResult{}, domain.ErrRefreshThrottled
	}
	return s.refresher.Refresh(ctx)
}

func (s *Service) platform(key string) (*domain.PlatformInfo, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	return snap.Lookup(key)
}
