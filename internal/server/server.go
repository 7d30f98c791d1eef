// Package server exposes the catalog query service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"launcher/internal/catalog"
	"launcher/internal/config"
	"launcher/internal/logger"
)

// Options configures the HTTP server.
type Options struct {
	Server  config.ServerConfig
	Metrics config.MetricsConfig

	// Registry is exposed on the metrics path and receives the request
	// counters. Nil disables both.
	Registry *prometheus.Registry

	// Audit records manual refresh triggers. Nil disables auditing.
	Audit *logger.AuditLogger
}

// Server serves the catalog API, the health probes and the metrics endpoint.
type Server struct {
	svc  *catalog.Service
	opts Options

	requests *prometheus.CounterVec

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
	wg         sync.WaitGroup
}

// New creates a server for svc.
func New(svc *catalog.Service, opts Options) *Server {
	s := &Server{svc: svc, opts: opts}
	if opts.Registry != nil {
		s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"})
		opts.Registry.MustRegister(s.requests)
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /api/streams", s.handleListStreams)
	s.route(mux, "GET /api/streams/{key}", s.handleGetStream)
	s.route(mux, "GET /api/extensions", s.handleListExtensions)
	s.route(mux, "GET /api/extensions/stream/{key}", s.handleListExtensions)
	s.route(mux, "GET /api/presets", s.handlePresets)
	s.route(mux, "GET /api/presets/stream/{key}", s.handlePresets)
	s.route(mux, "POST /api/resolve", s.handleResolve)
	s.route(mux, "POST /api/admin/refresh", s.handleRefresh)
	s.route(mux, "GET /q/health", s.handleReady)
	s.route(mux, "GET /q/health/ready", s.handleReady)
	s.route(mux, "GET /q/health/live", s.handleLive)
	s.route(mux, "GET /q/info", s.handleInfo)

	if s.opts.Metrics.Enabled && s.opts.Registry != nil {
		path := s.opts.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	}

	var h http.Handler = mux
	if s.opts.Server.Compress {
		h = gzhttp.GzipHandler(h)
	}
	return requestContext(recoverer(h))
}

// route registers a handler, counting its requests when metrics are enabled.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	if s.requests == nil {
		mux.Handle(pattern, h)
		return
	}
	counter := s.requests.MustCurryWith(prometheus.Labels{"route": pattern})
	mux.Handle(pattern, promhttp.InstrumentHandlerCounter(counter, h))
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	addr := s.opts.Server.Address()
	lis, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.opts.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.opts.Server.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.listener = lis
	s.running = true

	tls := s.opts.Server.TLS
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var err error
		if tls.Enabled {
			err = s.httpServer.ServeTLS(lis, tls.CertFile, tls.KeyFile)
		} else {
			err = s.httpServer.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			getLogger("http").Error("http server stopped", logger.WithError(err))
		}
	}()

	getLogger("http").Info("http server listening", "addr", lis.Addr().String(), "tls", tls.Enabled)
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.httpServer
	s.mu.Unlock()

	err := srv.Shutdown(ctx)
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
