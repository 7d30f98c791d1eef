package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"launcher/internal/certs"
	"launcher/internal/config"
	"launcher/internal/logger"
)

func newTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()

	catalogFile, err := filepath.Abs(filepath.Join("..", "..", "internal", "server", "testdata", "catalog.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	pidFile := filepath.Join(dir, "run", "launcherd.pid")
	cfgFile := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
log:
  level: warn
  format: text
server:
  host: 127.0.0.1
  port: 8080
  pid_file: %s
platforms:
  fast_mode: true
  reload_cron: "@every 1h"
registry:
  catalog_file: %s
`, pidFile, catalogFile)
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadLauncherd(cfgFile)
	if err != nil {
		t.Fatalf("LoadLauncherd: %v", err)
	}
	cfg.Server.Port = 0

	log, err := logger.New(cfg.Log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = log.Close() })

	return NewDaemon(cfg, cfgFile, log, nil), pidFile
}

func TestDaemon_StartStop(t *testing.T) {
	d, pidFile := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Error("expected error starting twice")
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("PID file: %v", err)
	}
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("PID file = %q", data)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !d.Service().Health().Loaded {
		if time.Now().After(deadline) {
			t.Fatal("catalog was not loaded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + d.Server().Addr().String() + "/q/health/ready")
	if err != nil {
		t.Fatalf("GET ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d", resp.StatusCode)
	}

	resp, err = http.Get("http://" + d.Server().Addr().String() + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := d.Stop(stopCtx); err != nil {
		t.Errorf("second Stop: %v", err)
	}

	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Errorf("PID file not removed: %v", err)
	}
}

func TestDaemon_ConfigReload(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = d.Stop(ctx) }()

	if d.watcher == nil {
		t.Fatal("expected config watcher")
	}

	path := d.watcher.File()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	edited := strings.Replace(string(data), "level: warn", "level: debug", 1)
	if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}
	if err := d.watcher.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := d.log.Level().String(); got != "DEBUG" {
		t.Errorf("level after reload = %s, want DEBUG", got)
	}
}

func TestDaemon_SelfSignedTLS(t *testing.T) {
	d, _ := newTestDaemon(t)
	certDir := filepath.Join(t.TempDir(), "tls")
	d.cfg.Server.TLS.Enabled = true
	d.cfg.Server.TLS.CertDir = certDir
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = d.Stop(ctx) }()

	caPEM, err := os.ReadFile(filepath.Join(certDir, certs.CACertFile))
	if err != nil {
		t.Fatalf("CA not written: %v", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		t.Fatal("invalid CA PEM")
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}}

	resp, err := client.Get("https://" + d.Server().Addr().String() + "/q/health/live")
	if err != nil {
		t.Fatalf("GET live over TLS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d", resp.StatusCode)
	}
}

func TestDaemon_FailedStartRemovesPIDFile(t *testing.T) {
	tests := []struct {
		name     string
		breakCfg func(t *testing.T, d *Daemon)
	}{
		{
			name: "tls",
			breakCfg: func(t *testing.T, d *Daemon) {
				notADir := filepath.Join(t.TempDir(), "certs")
				if err := os.WriteFile(notADir, []byte("x"), 0644); err != nil {
					t.Fatal(err)
				}
				d.cfg.Server.TLS.Enabled = true
				d.cfg.Server.TLS.CertDir = notADir
			},
		},
		{
			name: "listen",
			breakCfg: func(t *testing.T, d *Daemon) {
				lis, err := net.Listen("tcp", "127.0.0.1:0")
				if err != nil {
					t.Fatal(err)
				}
				t.Cleanup(func() { _ = lis.Close() })
				d.cfg.Server.Port = lis.Addr().(*net.TCPAddr).Port
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, pidFile := newTestDaemon(t)
			tt.breakCfg(t, d)

			if err := d.Start(context.Background()); err == nil {
				_ = d.Stop(context.Background())
				t.Fatal("expected Start to fail")
			}
			if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
				t.Errorf("PID file left behind: %v", err)
			}
		})
	}
}
