package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"launcher/internal/domain"
	"launcher/internal/logger"
	"launcher/internal/registry"
)

// RefreshOutcome classifies a refresh cycle.
type RefreshOutcome string

const (
	OutcomePublished RefreshOutcome = "published"
	OutcomeUpToDate  RefreshOutcome = "up_to_date"
	OutcomeFailed    RefreshOutcome = "failed"
)

// RefreshResult describes one refresh cycle.
type RefreshResult struct {
	CycleID         string         `json:"cycleId" yaml:"cycle_id"`
	Outcome         RefreshOutcome `json:"outcome" yaml:"outcome"`
	SourceTimestamp string         `json:"sourceTimestamp,omitempty" yaml:"source_timestamp,omitempty"`
	Streams         int            `json:"streams" yaml:"streams"`
	StartedAt       time.Time      `json:"startedAt" yaml:"started_at"`
	Duration        time.Duration  `json:"duration" yaml:"duration"`
	Error           string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Refresher runs fetch, build, validate and publish cycles. Cycles never
// overlap: callers arriving while a cycle runs share its result. A failed
// cycle leaves the published snapshot untouched.
type Refresher struct {
	fetcher   registry.Fetcher
	builder   *Builder
	validator *Validator
	store     *Store
	metrics   *Metrics

	group singleflight.Group
	last  atomic.Pointer[RefreshResult]

	// lifetime bounds every cycle; Close cancels it.
	lifetime context.Context
	close    context.CancelFunc
}

// NewRefresher wires a refresher.
func NewRefresher(fetcher registry.Fetcher, builder *Builder, validator *Validator, store *Store, metrics *Metrics) *Refresher {
	lifetime, cancel := context.WithCancel(context.Background())
	return &Refresher{
		fetcher:   fetcher,
		builder:   builder,
		validator: validator,
		store:     store,
		metrics:   metrics,
		lifetime:  lifetime,
		close:     cancel,
	}
}

// Refresh runs a cycle, or joins the one in flight. The cycle belongs to the
// refresher, not to the caller that started it: ctx only bounds how long this
// caller waits. Close cancels a running cycle.
func (r *Refresher) Refresh(ctx context.Context) (RefreshResult, error) {
	if err := ctx.Err(); err != nil {
		return RefreshResult{}, err
	}

	ch := r.group.DoChan("refresh", func() (any, error) {
		cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(r.lifetime, cancel)
		defer stop()

		res, err := r.run(cycleCtx)
		r.last.Store(&res)
		return res, err
	})

	select {
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	case out := <-ch:
		res := out.Val.(RefreshResult)
		if out.Shared {
			getLogger("refresher").Debug("joined in-flight refresh", "cycle_id", res.CycleID)
		}
		return res, out.Err
	}
}

// Close cancels the running cycle, if any, and every later one.
func (r *Refresher) Close() {
	r.close()
}

// Last returns the result of the last completed cycle.
func (r *Refresher) Last() (RefreshResult, bool) {
	res := r.last.Load()
	if res == nil {
		return RefreshResult{}, false
	}
	return *res, true
}

// Run adapts Refresh to a scheduler task.
func (r *Refresher) Run(ctx context.Context) error {
	_, err := r.Refresh(ctx)
	return err
}

func (r *Refresher) run(ctx context.Context) (RefreshResult, error) {
	cc := logger.NewDaemonContext("catalog.refresh")
	ctx = logger.WithCommandContext(ctx, cc)
	log := getLogger("refresher").With("cycle_id", cc.RequestID)

	res := RefreshResult{CycleID: cc.RequestID, StartedAt: cc.Timestamp}
	finish := func(outcome RefreshOutcome, err error) (RefreshResult, error) {
		res.Outcome = outcome
		res.Duration = time.Since(res.StartedAt)
		if err != nil {
			res.Error = err.Error()
			log.Warn("could not reload catalogs", logger.WithError(err), "duration", res.Duration)
		}
		r.metrics.observeRefresh(outcome, res.Duration)
		return res, err
	}

	catalog, err := r.fetcher.FetchPlatforms(ctx)
	if err != nil {
		return finish(OutcomeFailed, logger.WrapError(fmt.Errorf("%w: %w", domain.ErrFetch, err), "fetch platforms"))
	}
	res.SourceTimestamp = catalog.LastUpdated()

	if live, err := r.store.Current(); err == nil && res.SourceTimestamp != "" && live.SourceTimestamp() == res.SourceTimestamp {
		res.Streams = live.Len()
		log.Info("the platform cache is up to date with the registry", "source_timestamp", res.SourceTimestamp)
		return finish(OutcomeUpToDate, nil)
	}

	snap, err := r.builder.Build(ctx, catalog)
	if err != nil {
		if !errors.Is(err, domain.ErrFetch) && !errors.Is(err, domain.ErrBuildInvariant) {
			err = fmt.Errorf("%w: %w", domain.ErrBuildInvariant, err)
		}
		return finish(OutcomeFailed, logger.WrapError(err, "build snapshot"))
	}
	res.Streams = snap.Len()

	if err := r.validator.Validate(ctx, snap); err != nil {
		return finish(OutcomeFailed, logger.WrapError(err, "validate snapshot"))
	}

	published, err := r.store.Publish(snap)
	if err != nil {
		return finish(OutcomeFailed, logger.WrapError(err, "publish snapshot"))
	}
	if !published {
		log.Info("the platform cache is up to date with the registry", "source_timestamp", res.SourceTimestamp)
		return finish(OutcomeUpToDate, nil)
	}

	rec := snap.Recommended()
	stream := rec.Stream()
	r.metrics.observePublish(snap.Len(), rec.ExtensionCount(), snap.BuiltAt())
	log.Info("platform cache reloaded",
		"source_timestamp", snap.SourceTimestamp(),
		"recommended_stream", snap.RecommendedStreamKey(),
		"core_version", stream.CoreVersion,
		"platform_version", stream.PlatformVersion,
		"recommended_extensions", rec.ExtensionCount(),
		"streams", strings.Join(snap.StreamKeys(), ", "),
	)
	return finish(OutcomePublished, nil)
}
