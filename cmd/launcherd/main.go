package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"launcher/internal/config"
	"launcher/internal/logger"
	"launcher/internal/version"
)

var (
	cfgFile     string
	showVersion bool
)

func init() {
	flag.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/launcherd/config.yaml)")
	flag.BoolVar(&showVersion, "version", false, "show version")
}

func main() {
	flag.Parse()

	if showVersion {
		info := version.Get()
		fmt.Printf("launcherd %s\n", info.String())
		fmt.Println(info.Full())
		os.Exit(0)
	}

	// Auto-generate config on first run
	if cfgFile == "" {
		path, created, err := config.GenerateConfigIfNotExists(config.AppLauncherd, "yaml")
		if err == nil && created {
			stdlog.Printf("Created default config at: %s", path)
		}
	}

	cfg, err := config.LoadLauncherd(cfgFile)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = log.Close() }()

	var auditLog *logger.AuditLogger
	if cfg.Log.AuditPath != "" {
		auditLog, err = logger.NewAuditLogger(cfg.Log.AuditPath, cfg.Log.AuditMaxAgeDays)
		if err != nil {
			log.Warn("failed to initialize audit logger", "error", err)
		} else {
			defer func() { _ = auditLog.Close() }()
		}
	}

	cc := logger.NewDaemonContext("launcherd")
	ctx := logger.WithCommandContext(context.Background(), cc)
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting launcherd",
		"version", version.Get().String(),
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"log_level", cfg.Log.Level,
		"log_format", cfg.Log.Format,
		"request_id", cc.RequestID,
	)

	log.Debug("platform configuration",
		"registry_id", cfg.Platforms.RegistryID,
		"registry_url", cfg.Registry.URL,
		"catalog_file", cfg.Registry.CatalogFile,
		"reload_cron", cfg.Platforms.ReloadCron,
		"fast_mode", cfg.Platforms.FastMode,
		"java_lts_versions", cfg.Platforms.JavaLTSVersions,
		"generator", cfg.Generator.Kind,
	)

	if cfg.Server.TLS.Enabled {
		log.Info("TLS enabled", "cert_file", cfg.Server.TLS.CertFile)
	}

	auditLog.LogCommand(ctx, "launcherd", logger.AuditOutcomeSuccess, map[string]any{
		"event": "startup",
		"host":  cfg.Server.Host,
		"port":  cfg.Server.Port,
	})

	daemon := NewDaemon(cfg, cfgFile, log, auditLog)

	if err := daemon.Start(ctx); err != nil {
		log.Error("failed to start daemon", "error", err)
		auditLog.LogCommand(ctx, "launcherd", logger.AuditOutcomeFailure, map[string]any{
			"event": "startup_failed",
			"error": err.Error(),
		})
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("received shutdown signal",
		"signal", sig.String(),
		"request_id", cc.RequestID,
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := daemon.Stop(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}

	auditLog.LogCommand(ctx, "launcherd", logger.AuditOutcomeSuccess, map[string]any{
		"event":  "shutdown",
		"signal": sig.String(),
	})

	log.Info("launcherd stopped")
}
