package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"launcher/internal/catalog"
	"launcher/internal/config"
	"launcher/internal/domain"
	"launcher/internal/generator"
	"launcher/internal/registry"
)

type fixture struct {
	srv       *Server
	svc       *catalog.Service
	refresher *catalog.Refresher
	ts        *httptest.Server
}

func newFixture(t *testing.T, refreshInterval time.Duration) *fixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := catalog.NewMetrics(reg)
	fetcher := registry.NewFileFetcher(filepath.Join("testdata", "catalog.yaml"))
	store := catalog.NewStore()
	refresher := catalog.NewRefresher(
		fetcher,
		catalog.NewBuilder(fetcher, catalog.BuilderOptions{}),
		catalog.NewValidator(generator.NoopGenerator{}, catalog.ValidatorOptions{FastMode: true}, metrics),
		store,
		metrics,
	)

	presets := append(domain.DefaultPresets(), domain.Preset{
		Key:        "orm",
		Title:      "ORM",
		Extensions: []string{"io.quarkus:quarkus-hibernate-orm"},
	})
	svc, err := catalog.NewService(store, refresher, metrics, catalog.ServiceOptions{
		Presets:         presets,
		ReloadCron:      "@every 10m",
		RegistryID:      "registry.quarkus.io",
		RefreshInterval: refreshInterval,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	srv := New(svc, Options{
		Server:   config.ServerConfig{Compress: true},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Registry: reg,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{srv: srv, svc: svc, refresher: refresher, ts: ts}
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	if _, err := f.refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
	return v
}

func TestServer_NotLoaded(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		path string
		want int
	}{
		{"/api/streams", http.StatusServiceUnavailable},
		{"/api/extensions", http.StatusServiceUnavailable},
		{"/api/presets", http.StatusServiceUnavailable},
		{"/q/health/ready", http.StatusServiceUnavailable},
		{"/q/health/live", http.StatusOK},
		{"/q/info", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, tt.path, nil, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
			if resp.Header.Get("X-Request-Id") == "" {
				t.Error("expected X-Request-Id header")
			}
		})
	}
}

func TestServer_Streams(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t)

	resp, body := f.do(t, http.MethodGet, "/api/streams", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, body)
	}
	streams := decode[[]domain.StreamInfo](t, body)
	if len(streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(streams))
	}
	if streams[0].Key != "io.quarkus.platform:3.15" || !streams[0].Recommended {
		t.Errorf("expected 3.15 to be recommended first, got %+v", streams[0])
	}
	if streams[1].Status != "CR1" {
		t.Errorf("expected CR1 status for 3.16, got %q", streams[1].Status)
	}

	lastModified := resp.Header.Get("Last-Modified")
	if lastModified == "" {
		t.Fatal("expected Last-Modified header")
	}

	resp, _ = f.do(t, http.MethodGet, "/api/streams", nil, http.Header{"If-Modified-Since": {lastModified}})
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("conditional request status = %d, want 304", resp.StatusCode)
	}
}

func TestServer_ConditionalRequests(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t)

	future := http.Header{"If-Modified-Since": {time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)}}

	tests := []struct {
		name string
		path string
		want int
	}{
		{"known stream", "/api/streams/io.quarkus.platform:3.16", http.StatusNotModified},
		{"recommended extensions", "/api/extensions", http.StatusNotModified},
		{"unknown stream", "/api/streams/no.such:stream", http.StatusBadRequest},
		{"unknown stream extensions", "/api/extensions/stream/no.such:stream", http.StatusBadRequest},
		{"unknown stream with bad filter", "/api/extensions/stream/no.such:stream?filter=bad%28%28", http.StatusBadRequest},
		{"bad filter", "/api/extensions?filter=bad%28%28", http.StatusBadRequest},
		{"bad platformOnly", "/api/extensions?platformOnly=maybe", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, tt.path, nil, future)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
			if tt.want == http.StatusBadRequest && len(body) == 0 {
				t.Error("expected an error body")
			}
		})
	}
}

func TestServer_GetStream(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t)

	tests := []struct {
		key  string
		want int
	}{
		{"io.quarkus.platform:3.16", http.StatusOK},
		{"3.16", http.StatusOK},
		{"io.quarkus.platform:9.9", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, "/api/streams/"+tt.key, nil, nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
			if tt.want == http.StatusOK {
				if got := decode[domain.StreamInfo](t, body); got.Key != "io.quarkus.platform:3.16" {
					t.Errorf("unexpected stream %q", got.Key)
				}
			}
		})
	}
}

func TestServer_Extensions(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t)

	tests := []struct {
		name    string
		path    string
		status  int
		wantIDs []string
	}{
		{
			name:    "by id",
			path:    "/api/extensions?id=io.quarkus:quarkus-rest",
			status:  http.StatusOK,
			wantIDs: []string{"io.quarkus:quarkus-rest"},
		},
		{
			name:    "stream by bare id",
			path:    "/api/extensions/stream/3.16",
			status:  http.StatusOK,
			wantIDs: []string{"io.quarkus:quarkus-rest"},
		},
		{
			name:    "cel filter",
			path:    "/api/extensions?filter=" + url.QueryEscape(`ext.category == "Data"`),
			status:  http.StatusOK,
			wantIDs: []string{"io.quarkus:quarkus-hibernate-orm"},
		},
		{
			name:   "invalid filter",
			path:   "/api/extensions?filter=" + url.QueryEscape(`ext.order +`),
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid platformOnly",
			path:   "/api/extensions?platformOnly=maybe",
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown stream",
			path:   "/api/extensions/stream/io.quarkus.platform:1.0",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodGet, tt.path, nil, nil)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if tt.wantIDs == nil {
				return
			}
			exts := decode[[]domain.ExtensionInfo](t, body)
			var ids []string
			for _, e := range exts {
				ids = append(ids, e.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestServer_Presets(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t)

	keys := func(path string) []string {
		resp, body := f.do(t, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d (%s)", path, resp.StatusCode, body)
		}
		var out []string
		for _, p := range decode[[]domain.Preset](t, body) {
			out = append(out, p.Key)
		}
		return out
	}

	got := keys("/api/presets")
	if strings.Join(got, ",") != "rest-service,orm" {
		t.Errorf("recommended stream presets = %v", got)
	}
	if got := keys("/api/presets/stream/3.16"); len(got) != 0 {
		t.Errorf("expected no presets for 3.16, got %v", got)
	}
}

func TestServer_Resolve(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		check  func(t *testing.T, r resolveResponse)
	}{
		{
			name:   "shortcuts with defaults",
			body:   map[string]any{"extensions": []string{"rest", "hibernate-orm"}},
			status: http.StatusOK,
			check: func(t *testing.T, r resolveResponse) {
				if r.StreamKey != "io.quarkus.platform:3.15" {
					t.Errorf("stream = %q", r.StreamKey)
				}
				if strings.Join(r.Extensions, ",") != "io.quarkus:quarkus-hibernate-orm,io.quarkus:quarkus-rest" {
					t.Errorf("extensions = %v", r.Extensions)
				}
				if r.JavaVersion != 21 || r.BuildTool != "MAVEN" || r.GroupID != generator.DefaultGroupID {
					t.Errorf("defaults not applied: %+v", r)
				}
			},
		},
		{
			name:   "explicit stream and java",
			body:   map[string]any{"streamKey": "3.16", "extensions": []string{"rest"}, "javaVersion": 17, "buildTool": "gradle"},
			status: http.StatusOK,
			check: func(t *testing.T, r resolveResponse) {
				if r.JavaVersion != 17 || r.BuildTool != "GRADLE" {
					t.Errorf("unexpected %+v", r)
				}
			},
		},
		{
			name:   "unknown extension",
			body:   map[string]any{"extensions": []string{"does-not-exist"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "incompatible java",
			body:   map[string]any{"extensions": []string{"rest"}, "javaVersion": 11},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   map[string]any{"extensions": []string{"rest"}, "color": "blue"},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, "/api/resolve", tt.body, nil)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if tt.check != nil {
				tt.check(t, decode[resolveResponse](t, body))
			}
		})
	}
}

func TestServer_RefreshThrottled(t *testing.T) {
	f := newFixture(t, time.Hour)

	resp, body := f.do(t, http.MethodPost, "/api/admin/refresh", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first refresh status = %d (%s)", resp.StatusCode, body)
	}
	res := decode[catalog.RefreshResult](t, body)
	if res.Outcome != catalog.OutcomePublished {
		t.Errorf("outcome = %q, want published", res.Outcome)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/admin/refresh", nil, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second refresh status = %d, want 429", resp.StatusCode)
	}

	resp, body = f.do(t, http.MethodGet, "/q/health/ready", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d (%s)", resp.StatusCode, body)
	}
	h := decode[catalog.HealthStatus](t, body)
	if !h.Loaded || h.RecommendedStreamKey != "io.quarkus.platform:3.15" || h.LastRefresh == nil {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestServer_MetricsAndCompression(t *testing.T) {
	f := newFixture(t, 0)
	f.load(t)

	// populate the request counter
	f.do(t, http.MethodGet, "/api/streams", nil, nil)

	resp, body := f.do(t, http.MethodGet, "/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		"launcher_catalog_refreshes_total",
		`launcher_http_requests_total{code="200",method="get",route="GET /api/streams"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/api/extensions?platformOnly=false", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	// a custom transport keeps the client from transparently decompressing
	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	gzResp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer gzResp.Body.Close()

	if gzResp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", gzResp.Header.Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(gzResp.Body)
	if err != nil {
		t.Fatal(err)
	}
	exts := decode[[]domain.ExtensionInfo](t, mustReadAll(t, zr))
	if len(exts) < 4 {
		t.Errorf("expected the full extension list, got %d", len(exts))
	}
}

func TestRecoverer(t *testing.T) {
	h := requestContext(recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotLoaded, http.StatusServiceUnavailable},
		{domain.ErrRefreshThrottled, http.StatusTooManyRequests},
		{&domain.UnknownStreamError{Key: "x"}, http.StatusBadRequest},
		{&domain.InvalidExtensionError{ID: "x"}, http.StatusBadRequest},
		{domain.ErrInvalidBuildTool, http.StatusBadRequest},
		{domain.ErrInvalidFilter, http.StatusBadRequest},
		{domain.ErrFetch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t, 0)
	srv := New(f.svc, Options{Server: config.ServerConfig{Host: "127.0.0.1", Port: 0}})

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("expected error when starting twice")
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/q/health/live")
	if err != nil {
		t.Fatalf("GET live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := srv.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func mustReadAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
