package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"launcher/internal/config"
	"launcher/internal/domain"
	"launcher/internal/generator"
)

// Canary is a set of extension identifiers that must resolve and generate in
// every stream before a snapshot is published.
type Canary struct {
	Name       string   `mapstructure:"name" yaml:"name"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions"`

	// RequiresExtension, when set, must be an exact extension id of the
	// stream for Extensions to be used; otherwise Fallback is probed.
	RequiresExtension string   `mapstructure:"requires_extension" yaml:"requires_extension,omitempty"`
	Fallback          []string `mapstructure:"fallback" yaml:"fallback,omitempty"`
}

// ExtensionsFor returns the identifiers to probe in p.
func (c Canary) ExtensionsFor(p *domain.PlatformInfo) []string {
	if c.RequiresExtension != "" && !p.HasExtension(c.RequiresExtension) {
		return c.Fallback
	}
	return c.Extensions
}

// CanariesFromConfig converts configured canaries. An empty list yields nil,
// which keeps the built-in sets.
func CanariesFromConfig(cfgs []config.CanaryConfig) []Canary {
	if len(cfgs) == 0 {
		return nil
	}
	out := make([]Canary, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, Canary{
			Name:              c.Name,
			Extensions:        c.Extensions,
			RequiresExtension: c.RequiresExtension,
			Fallback:          c.Fallback,
		})
	}
	return out
}

// DefaultCanaries returns the canary sets probed by default.
func DefaultCanaries() []Canary {
	return []Canary{
		{
			Name:       "resteasy",
			Extensions: []string{"resteasy", "resteasy-jackson", "hibernate-validator"},
		},
		{
			Name:              "rest",
			Extensions:        []string{"rest", "rest-jackson", "hibernate-validator"},
			RequiresExtension: "io.quarkus:quarkus-rest",
			Fallback:          []string{"resteasy-reactive", "resteasy-reactive-jackson", "hibernate-validator"},
		},
		{
			Name:       "spring-web",
			Extensions: []string{"spring-web"},
		},
	}
}

// ValidatorOptions configures snapshot validation.
type ValidatorOptions struct {
	// FastMode skips the canary probes and keeps only structural checks.
	FastMode bool

	// Timeout bounds each canary probe.
	Timeout time.Duration

	// Concurrency bounds the number of streams probed at once.
	Concurrency int

	Canaries []Canary
}

// Validator checks a candidate snapshot before it is published.
type Validator struct {
	generator generator.Generator
	opts      ValidatorOptions
	metrics   *Metrics
}

// NewValidator creates a validator probing canaries through gen.
func NewValidator(gen generator.Generator, opts ValidatorOptions, metrics *Metrics) *Validator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Canaries == nil {
		opts.Canaries = DefaultCanaries()
	}
	return &Validator{generator: gen, opts: opts, metrics: metrics}
}

// Validate rejects the snapshot with ErrValidation when a structural check or
// any canary probe fails. A probe that times out counts as a failure.
func (v *Validator) Validate(ctx context.Context, s *domain.Snapshot) error {
	if s == nil || s.Len() == 0 {
		return fmt.Errorf("%w: no stream found", domain.ErrValidation)
	}
	if s.Recommended() == nil {
		return fmt.Errorf("%w: recommended stream not found in stream catalog: %s", domain.ErrValidation, s.RecommendedStreamKey())
	}
	for _, key := range s.StreamKeys() {
		p, _ := s.Platform(key)
		if p.ExtensionCount() == 0 {
			return fmt.Errorf("%w: no extension found in the stream: %s", domain.ErrValidation, key)
		}
	}

	if v.opts.FastMode {
		getLogger("validator").Debug("fast mode, skipping canary probes")
		return nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(v.opts.Concurrency)
	for _, key := range s.StreamKeys() {
		p, _ := s.Platform(key)
		eg.Go(func() error {
			return v.probeStream(ctx, key, p)
		})
	}
	return eg.Wait()
}

func (v *Validator) probeStream(ctx context.Context, key string, p *domain.PlatformInfo) error {
	for _, canary := range v.opts.Canaries {
		if err := v.probe(ctx, key, p, canary); err != nil {
			v.metrics.observeProbe(canary.Name, false)
			return fmt.Errorf("%w: stream %s canary %s: %w", domain.ErrValidation, key, canary.Name, err)
		}
		v.metrics.observeProbe(canary.Name, true)
	}
	return nil
}

func (v *Validator) probe(ctx context.Context, key string, p *domain.PlatformInfo, canary Canary) error {
	start := time.Now()

	extensions, err := p.ResolveExtensions(canary.ExtensionsFor(p))
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "launcher-canary-")
	if err != nil {
		return fmt.Errorf("creating probe directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	probeCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()

	_, err = v.generator.Generate(probeCtx, generator.Request{
		Platform:   p,
		Extensions: extensions,
		OutputDir:  filepath.Join(dir, generator.DefaultArtifactID),
	})
	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %s: %w", v.opts.Timeout, err)
		}
		return err
	}

	getLogger("validator").Debug("canary probe passed",
		"stream", key,
		"canary", canary.Name,
		"extensions", extensions,
		"duration", time.Since(start),
	)
	return nil
}
