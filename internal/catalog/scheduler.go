package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"launcher/internal/logger"
)

// DefaultReloadCron reloads the catalog every ten minutes.
const DefaultReloadCron = "@every 10m"

// ParseSchedule parses a standard five field cron expression or a descriptor
// such as "@hourly" or "@every 10m".
func ParseSchedule(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Scheduler runs a task once at start and then on a cron schedule. Task errors
// are logged and never stop the schedule.
type Scheduler struct {
	schedule string
	task     func(context.Context) error
	logger   *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewScheduler creates a scheduler.
func NewScheduler(schedule string, task func(context.Context) error, log *logger.Logger) *Scheduler {
	if log == nil {
		log = getLogger("scheduler")
	}
	return &Scheduler{
		schedule: schedule,
		task:     task,
		logger:   log,
	}
}

// Schedule returns the cron expression.
func (s *Scheduler) Schedule() string {
	return s.schedule
}

// Start runs the task immediately in the background and schedules it.
func (s *Scheduler) Start(ctx context.Context) error {
	sched, err := ParseSchedule(s.schedule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	cl := cronLogger{s.logger}
	s.cron = cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl))
	s.entry = s.cron.Schedule(sched, cron.FuncJob(func() { s.runTask(ctx) }))
	s.cron.Start()

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.runTask(ctx)
	}()

	s.logger.Info("catalog reload scheduled", "cron", s.schedule)
	return nil
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	cancel()
	<-c.Stop().Done()
	s.running.Wait()
	return nil
}

// Next returns the next scheduled run, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) runTask(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.task(ctx); err != nil {
		s.logger.Warn("scheduled catalog reload failed", logger.WithError(err))
	}
}

// cronLogger adapts the logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{logger.WithError(err)}, keysAndValues...)...)
}
