// Package main provides the launcherd daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"launcher/internal/catalog"
	"launcher/internal/certs"
	"launcher/internal/config"
	"launcher/internal/generator"
	"launcher/internal/logger"
	"launcher/internal/registry"
	"launcher/internal/server"
)

// Daemon manages all launcherd components and their lifecycle.
type Daemon struct {
	cfg      *config.LauncherdConfig
	cfgFile  string
	log      *logger.Logger
	auditLog *logger.AuditLogger

	registry  *prometheus.Registry
	refresher *catalog.Refresher
	service   *catalog.Service
	scheduler *catalog.Scheduler
	server    *server.Server
	watcher   *config.ConfigWatcher

	mu      sync.Mutex
	running bool
}

// NewDaemon creates a new daemon instance.
func NewDaemon(cfg *config.LauncherdConfig, cfgFile string, log *logger.Logger, auditLog *logger.AuditLogger) *Daemon {
	catalog.SetLogger(log)
	registry.SetLogger(log)
	server.SetLogger(log)

	return &Daemon{
		cfg:      cfg,
		cfgFile:  cfgFile,
		log:      log,
		auditLog: auditLog,
	}
}

// Start initializes and starts all daemon components in the correct order.
// Order: Catalog -> Scheduler -> Server -> Config watcher
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon already running")
	}

	d.log.Info("starting daemon components")

	if err := d.writePIDFile(); err != nil {
		d.log.Warn("failed to write PID file", "error", err, "path", d.cfg.Server.PIDFile)
	}

	refresher, err := d.startCatalog()
	if err != nil {
		d.abortStart()
		return fmt.Errorf("failed to start catalog: %w", err)
	}
	d.refresher = refresher

	// The first run happens right away; queries answer NOT_LOADED until it
	// publishes.
	d.scheduler = catalog.NewScheduler(d.cfg.Platforms.ReloadCron, d.refreshTask(refresher), d.log.With("component", "scheduler"))
	if err := d.scheduler.Start(ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if err := d.prepareTLS(); err != nil {
		d.abortStart()
		return fmt.Errorf("failed to prepare TLS: %w", err)
	}

	d.server = server.New(d.service, server.Options{
		Server:   d.cfg.Server,
		Metrics:  d.cfg.Metrics,
		Registry: d.registry,
		Audit:    d.auditLog,
	})
	if err := d.server.Start(ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("failed to start server: %w", err)
	}
	d.log.Info("query server listening", "addr", d.server.Addr().String())

	d.startWatcher(ctx)

	d.running = true
	d.log.Info("daemon started successfully")

	return nil
}

// Stop gracefully shuts down all daemon components in reverse order.
// Order: Config watcher -> Server -> Scheduler
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.log.Info("stopping daemon components")

	var errs []error

	if d.watcher != nil {
		d.watcher.Stop()
	}

	if err := d.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	d.refresher.Close()
	if err := d.scheduler.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}

	if err := d.removePIDFile(); err != nil {
		d.log.Warn("failed to remove PID file", "error", err)
	}

	d.running = false

	if len(errs) > 0 {
		d.log.Error("daemon stopped with errors", "errors", errs)
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	d.log.Info("daemon stopped successfully")
	return nil
}

// abortStart undoes a partial Start.
func (d *Daemon) abortStart() {
	if d.refresher != nil {
		d.refresher.Close()
	}
	if d.scheduler != nil {
		_ = d.scheduler.Stop()
	}
	if err := d.removePIDFile(); err != nil {
		d.log.Warn("failed to remove PID file", "error", err)
	}
}

// startCatalog wires the fetch, build, validate and publish pipeline and the
// query service on top of it.
func (d *Daemon) startCatalog() (*catalog.Refresher, error) {
	d.registry = prometheus.NewRegistry()
	d.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := catalog.NewMetrics(d.registry)

	fetcher := registry.NewFetcher(d.cfg.Registry, d.cfg.Platforms.RegistryID)

	builder := catalog.NewBuilder(fetcher, catalog.BuilderOptions{
		JavaLTSVersions: d.cfg.Platforms.JavaLTSVersions,
		JavaExclusions:  d.cfg.Platforms.JavaExclusions(),
	})

	validator := catalog.NewValidator(newGenerator(d.cfg.Generator), catalog.ValidatorOptions{
		FastMode:    d.cfg.Platforms.FastMode,
		Timeout:     d.cfg.Platforms.ValidationTimeout,
		Concurrency: d.cfg.Platforms.ValidationConcurrency,
		Canaries:    catalog.CanariesFromConfig(d.cfg.Platforms.Canaries),
	}, metrics)

	store := catalog.NewStore()
	refresher := catalog.NewRefresher(fetcher, builder, validator, store, metrics)

	breakers := func() map[string]string {
		return registry.BreakerStates(fetcher)
	}
	svc, err := catalog.NewService(store, refresher, metrics, catalog.ServiceOptions{
		Presets:          d.cfg.Presets.Presets(),
		ReloadCron:       d.cfg.Platforms.ReloadCron,
		RegistryID:       d.cfg.Platforms.RegistryID,
		RefreshInterval:  d.cfg.Platforms.RefreshRateLimit,
		RegistryBreakers: breakers,
	})
	if err != nil {
		return nil, err
	}
	d.service = svc

	d.log.Debug("catalog pipeline initialized",
		"fast_mode", d.cfg.Platforms.FastMode,
		"generator", d.cfg.Generator.Kind,
	)
	return refresher, nil
}

// refreshTask runs a scheduled refresh and audits its outcome.
func (d *Daemon) refreshTask(r *catalog.Refresher) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := r.Refresh(ctx)
		if ctx.Err() != nil {
			// Stopped while waiting on the cycle.
			return err
		}
		outcome := logger.AuditOutcomeSuccess
		if err != nil {
			outcome = logger.AuditOutcomeFailure
		}
		d.auditLog.LogRefresh(ctx, "scheduled", outcome, map[string]any{
			"cycle_id":         res.CycleID,
			"outcome":          string(res.Outcome),
			"source_timestamp": res.SourceTimestamp,
			"streams":          res.Streams,
		})
		return err
	}
}

// startWatcher applies presets and the log level from configuration edits.
// Other settings take effect on restart.
func (d *Daemon) startWatcher(ctx context.Context) {
	watcher, err := config.NewConfigWatcher(d.cfgFile)
	if err != nil {
		d.log.Debug("configuration hot reload disabled", "error", err)
		return
	}

	watcher.OnError(func(err error) {
		d.log.Warn("ignoring invalid configuration change", "error", err, "path", watcher.File())
		d.auditLog.LogConfigChange(ctx, watcher.File(), logger.AuditOutcomeFailure, nil, map[string]any{"error": err.Error()})
	})
	watcher.OnChange(func(cfg *config.LauncherdConfig) {
		before := map[string]any{"log_level": d.log.Level().String()}

		d.service.SetPresets(cfg.Presets.Presets())
		if err := d.log.SetLevel(cfg.Log.Level); err != nil {
			d.log.Warn("could not apply log level", "error", err, "level", cfg.Log.Level)
		}

		after := map[string]any{"log_level": d.log.Level().String(), "presets": len(cfg.Presets.Presets())}
		d.log.Info("configuration reloaded", "path", watcher.File())
		d.auditLog.LogConfigChange(ctx, watcher.File(), logger.AuditOutcomeSuccess, before, after)
	})
	watcher.Start()

	d.watcher = watcher
	d.log.Debug("watching configuration", "path", watcher.File())
}

// prepareTLS issues self-signed certificates when TLS is enabled without
// configured certificate files.
func (d *Daemon) prepareTLS() error {
	tls := &d.cfg.Server.TLS
	if !tls.Enabled || tls.CertFile != "" {
		return nil
	}

	dir := tls.CertDir
	if dir == "" {
		cfgDir, err := config.UserConfigDir(config.AppLauncherd)
		if err != nil {
			return err
		}
		dir = filepath.Join(cfgDir, "tls")
	}

	certFile, keyFile, issued, err := certs.EnsureServerCert(dir, certs.DefaultConfig(d.cfg.Server.Host), 30*24*time.Hour)
	if err != nil {
		return err
	}
	tls.CertFile, tls.KeyFile = certFile, keyFile

	if issued {
		b, err := certs.LoadFromDir(dir)
		if err != nil {
			return err
		}
		fp, _ := certs.Fingerprint(b.CACert)
		d.log.Info("issued self-signed server certificate", "dir", dir, "ca_fingerprint", fp)
	}
	return nil
}

func newGenerator(cfg config.GeneratorConfig) generator.Generator {
	if cfg.Kind == "exec" {
		return generator.NewExecGenerator(cfg.Command, cfg.Args)
	}
	return generator.NoopGenerator{}
}

// pidFilePath expands a leading ~ in the configured PID file.
func (d *Daemon) pidFilePath() (string, error) {
	pidFile := d.cfg.Server.PIDFile
	if pidFile[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand home dir: %w", err)
		}
		pidFile = filepath.Join(home, pidFile[1:])
	}
	return pidFile, nil
}

// writePIDFile writes the daemon's PID to a file.
func (d *Daemon) writePIDFile() error {
	if d.cfg.Server.PIDFile == "" {
		return nil
	}

	pidFile, err := d.pidFilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	d.log.Debug("wrote PID file", "path", pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.cfg.Server.PIDFile == "" {
		return nil
	}

	pidFile, err := d.pidFilePath()
	if err != nil {
		return err
	}

	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// Service returns the catalog query service.
func (d *Daemon) Service() *catalog.Service {
	return d.service
}

// Server returns the HTTP server.
func (d *Daemon) Server() *server.Server {
	return d.server
}
