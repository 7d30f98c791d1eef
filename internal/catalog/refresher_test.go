package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"launcher/internal/domain"
	"launcher/internal/generator"
	"launcher/internal/logger"
	"launcher/internal/registry"
)

func TestRefresher_Refresh(t *testing.T) {
	f := newFakeFetcher()
	r, store := newTestRefresher(f, nil)

	if _, ok := r.Last(); ok {
		t.Error("Last() reported a result before any cycle")
	}

	res, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.Outcome != OutcomePublished {
		t.Errorf("Outcome = %q, want published", res.Outcome)
	}
	if res.SourceTimestamp != testTimestamp || res.Streams != 2 || res.CycleID == "" {
		t.Errorf("result = %+v", res)
	}
	first, err := store.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}

	res, err = r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if res.Outcome != OutcomeUpToDate {
		t.Errorf("Outcome = %q, want up_to_date", res.Outcome)
	}
	if got, _ := store.Current(); got != first {
		t.Error("up to date cycle replaced the snapshot")
	}

	last, ok := r.Last()
	if !ok || last.CycleID != res.CycleID {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestRefresher_FailureKeepsSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fakeFetcher)
		gen    generator.Generator
		want   error
	}{
		{
			name:   "platform fetch",
			mutate: func(f *fakeFetcher) { f.platformErr = registry.ErrUpstreamDown },
			want:   domain.ErrFetch,
		},
		{
			name:   "member fetch",
			mutate: func(f *fakeFetcher) { f.catalogErr = registry.ErrRateLimited },
			want:   domain.ErrFetch,
		},
		{
			name: "build invariant",
			mutate: func(f *fakeFetcher) {
				f.catalogs["3.15.1"] = &registry.ExtensionCatalog{ID: "empty"}
			},
			want: domain.ErrBuildInvariant,
		},
		{
			name: "validation",
			gen: funcGenerator(func(context.Context, generator.Request) (*generator.Result, error) {
				return nil, errors.New("generation failed")
			}),
			want: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			r, store := newTestRefresher(f, nil)
			if _, err := r.Refresh(context.Background()); err != nil {
				t.Fatalf("initial Refresh() error = %v", err)
			}
			live, _ := store.Current()

			f.setTimestamp("2024-10-02T10:00:00Z")
			if tt.mutate != nil {
				tt.mutate(f)
			}
			if tt.gen != nil {
				r.validator = NewValidator(tt.gen, ValidatorOptions{Canaries: testCanaries()}, nil)
			}

			res, err := r.Refresh(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Refresh() error = %v, want %v", err, tt.want)
			}
			if res.Outcome != OutcomeFailed || res.Error == "" {
				t.Errorf("result = %+v", res)
			}
			if got, _ := store.Current(); got != live {
				t.Error("failed cycle replaced the live snapshot")
			}
		})
	}
}

func TestRefresher_FailureBeforeFirstLoad(t *testing.T) {
	f := newFakeFetcher()
	f.platformErr = registry.ErrUpstreamDown
	r, store := newTestRefresher(f, nil)

	if err := r.Run(context.Background()); !errors.Is(err, domain.ErrFetch) {
		t.Errorf("Run() error = %v, want ErrFetch", err)
	}
	if _, err := store.Current(); !errors.Is(err, domain.ErrNotLoaded) {
		t.Errorf("Current() error = %v, want ErrNotLoaded", err)
	}
}

func TestRefresher_Coalesces(t *testing.T) {
	f := newFakeFetcher()
	entered := make(chan struct{}, 8)
	release := make(chan struct{})
	gen := funcGenerator(func(ctx context.Context, req generator.Request) (*generator.Result, error) {
		entered <- struct{}{}
		<-release
		return &generator.Result{Dir: req.OutputDir}, nil
	})
	r, _ := newTestRefresher(f, gen)

	var wg sync.WaitGroup
	results := make([]RefreshResult, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = r.Refresh(context.Background())
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = r.Refresh(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := f.fetchCalls(); got != 1 {
		t.Errorf("FetchPlatforms calls = %d, want 1", got)
	}
	if results[0].CycleID != results[1].CycleID {
		t.Errorf("cycle ids differ: %q vs %q", results[0].CycleID, results[1].CycleID)
	}
}

func TestRefresher_CallerCancelDoesNotAbortCycle(t *testing.T) {
	f := newFakeFetcher()
	entered := make(chan struct{}, 8)
	release := make(chan struct{})
	gen := funcGenerator(func(ctx context.Context, req generator.Request) (*generator.Result, error) {
		entered <- struct{}{}
		select {
		case <-release:
			return &generator.Result{Dir: req.OutputDir}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	r, store := newTestRefresher(f, gen)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Refresh(ctx)
		firstErr <- err
	}()
	<-entered

	type outcome struct {
		res RefreshResult
		err error
	}
	joined := make(chan outcome, 1)
	go func() {
		res, err := r.Refresh(context.Background())
		joined <- outcome{res, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}

	close(release)
	got := <-joined
	if got.err != nil {
		t.Fatalf("joined caller error = %v", got.err)
	}
	if got.res.Outcome != OutcomePublished {
		t.Errorf("Outcome = %q, want published", got.res.Outcome)
	}
	if !store.Loaded() {
		t.Error("store not loaded after the cycle completed")
	}
	if calls := f.fetchCalls(); calls != 1 {
		t.Errorf("FetchPlatforms calls = %d, want 1", calls)
	}
}

func TestRefresher_CloseCancelsCycle(t *testing.T) {
	f := newFakeFetcher()
	entered := make(chan struct{}, 8)
	gen := funcGenerator(func(ctx context.Context, req generator.Request) (*generator.Result, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r, store := newTestRefresher(f, gen)

	done := make(chan error, 1)
	go func() {
		_, err := r.Refresh(context.Background())
		done <- err
	}()
	<-entered
	r.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Refresh() succeeded after Close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Refresh() did not return after Close")
	}
	if store.Loaded() {
		t.Error("cancelled cycle published a snapshot")
	}
}

func TestRefresher_FailureCarriesCaller(t *testing.T) {
	f := newFakeFetcher()
	f.platformErr = registry.ErrUpstreamDown
	r, _ := newTestRefresher(f, nil)

	_, err := r.Refresh(context.Background())
	var we *logger.WrappedError
	if !errors.As(err, &we) {
		t.Fatalf("Refresh() error = %T, want *logger.WrappedError", err)
	}
	if !strings.Contains(we.Caller(), "refresher.go") {
		t.Errorf("Caller() = %q, want refresher.go", we.Caller())
	}
	if !errors.Is(err, domain.ErrFetch) {
		t.Errorf("Refresh() error = %v, want ErrFetch", err)
	}
}
