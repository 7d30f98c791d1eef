package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"launcher/internal/config"
	"launcher/internal/domain"
	"launcher/internal/generator"
)

func TestValidator_Validate(t *testing.T) {
	snap := testSnapshot(t, newFakeFetcher())

	var probes atomic.Int32
	var manifests atomic.Int32
	gen := funcGenerator(func(ctx context.Context, req generator.Request) (*generator.Result, error) {
		probes.Add(1)
		res, err := generator.NoopGenerator{}.Generate(ctx, req)
		if err == nil {
			if _, statErr := os.Stat(filepath.Join(res.Dir, generator.ManifestFile)); statErr == nil {
				manifests.Add(1)
			}
		}
		return res, err
	})

	v := NewValidator(gen, ValidatorOptions{Canaries: testCanaries()}, nil)
	if err := v.Validate(context.Background(), snap); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	// two canaries per stream
	if got := probes.Load(); got != 4 {
		t.Errorf("probes = %d, want 4", got)
	}
	if got := manifests.Load(); got != 4 {
		t.Errorf("manifests written = %d, want 4", got)
	}
}

func TestValidator_FastMode(t *testing.T) {
	snap := testSnapshot(t, newFakeFetcher())
	gen := funcGenerator(func(context.Context, generator.Request) (*generator.Result, error) {
		t.Error("generator called in fast mode")
		return nil, errors.New("unexpected")
	})

	v := NewValidator(gen, ValidatorOptions{FastMode: true}, nil)
	if err := v.Validate(context.Background(), snap); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := v.Validate(context.Background(), nil); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Validate(nil) error = %v, want ErrValidation", err)
	}
}

func TestValidator_Failures(t *testing.T) {
	tests := []struct {
		name     string
		canaries []Canary
		gen      generator.Generator
		timeout  time.Duration
		contains string
	}{
		{
			name:     "unresolvable canary",
			canaries: []Canary{{Name: "missing", Extensions: []string{"does-not-exist"}}},
			gen:      generator.NoopGenerator{},
			contains: "does-not-exist",
		},
		{
			name:     "generator failure",
			canaries: testCanaries(),
			gen: funcGenerator(func(ctx context.Context, req generator.Request) (*generator.Result, error) {
				if slices.Contains(req.Extensions, "io.quarkus:quarkus-spring-web") {
					return nil, errors.New("spring-web codestart exploded")
				}
				return &generator.Result{Dir: req.OutputDir}, nil
			}),
			contains: "spring-web codestart exploded",
		},
		{
			name:     "timeout",
			canaries: testCanaries(),
			timeout:  20 * time.Millisecond,
			gen: funcGenerator(func(ctx context.Context, req generator.Request) (*generator.Result, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			contains: "timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot(t, newFakeFetcher())
			v := NewValidator(tt.gen, ValidatorOptions{Canaries: tt.canaries, Timeout: tt.timeout}, nil)

			err := v.Validate(context.Background(), snap)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.contains)
			}
		})
	}
}

func TestCanary_ExtensionsFor(t *testing.T) {
	snap := testSnapshot(t, newFakeFetcher())
	p := snap.Recommended()

	canary := Canary{
		Name:              "rest",
		Extensions:        []string{"rest"},
		RequiresExtension: "io.quarkus:quarkus-rest",
		Fallback:          []string{"resteasy-reactive"},
	}
	if got := canary.ExtensionsFor(p); !slices.Equal(got, []string{"rest"}) {
		t.Errorf("ExtensionsFor() = %v, want [rest]", got)
	}

	canary.RequiresExtension = "io.quarkus:quarkus-absent"
	if got := canary.ExtensionsFor(p); !slices.Equal(got, []string{"resteasy-reactive"}) {
		t.Errorf("ExtensionsFor() = %v, want fallback", got)
	}
}

func TestDefaultCanaries(t *testing.T) {
	canaries := DefaultCanaries()
	if len(canaries) != 3 {
		t.Fatalf("len(DefaultCanaries()) = %d, want 3", len(canaries))
	}
	for _, c := range canaries {
		if c.Name == "" || len(c.Extensions) == 0 {
			t.Errorf("incomplete canary %+v", c)
		}
	}
}

func TestCanariesFromConfig(t *testing.T) {
	if got := CanariesFromConfig(nil); got != nil {
		t.Errorf("CanariesFromConfig(nil) = %v, want nil", got)
	}

	got := CanariesFromConfig([]config.CanaryConfig{
		{Name: "rest", Extensions: []string{"rest"}, RequiresExtension: "io.quarkus:quarkus-rest", Fallback: []string{"resteasy"}},
	})
	want := Canary{Name: "rest", Extensions: []string{"rest"}, RequiresExtension: "io.quarkus:quarkus-rest", Fallback: []string{"resteasy"}}
	if len(got) != 1 || got[0].Name != want.Name || got[0].RequiresExtension != want.RequiresExtension ||
		!slices.Equal(got[0].Extensions, want.Extensions) || !slices.Equal(got[0].Fallback, want.Fallback) {
		t.Errorf("CanariesFromConfig() = %+v, want %+v", got, want)
	}
}
