package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"launcher/internal/catalog"
	"launcher/internal/domain"
	"launcher/internal/logger"
	"launcher/internal/version"
)

type errorBody struct {
	Error string `json:"error"`
}

// resolveRequest is the body of POST /api/resolve.
type resolveRequest struct {
	StreamKey string `json:"streamKey,omitempty"`
	catalog.ProjectRequest
}

// resolveResponse is the validated project definition.
type resolveResponse struct {
	StreamKey   string   `json:"streamKey"`
	Extensions  []string `json:"extensions"`
	JavaVersion int      `json:"javaVersion"`
	BuildTool   string   `json:"buildTool"`
	GroupID     string   `json:"groupId"`
	ArtifactID  string   `json:"artifactId"`
	Version     string   `json:"version"`
	NoCode      bool     `json:"noCode"`
}

func (s *Server) handleListStreams(w http.ResponseWriter, r *http.Request) {
	modified := s.lastModified()
	streams, err := s.svc.ListStreams()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notModified(w, r, modified) {
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

func (s *Server) handleGetStream(w http.ResponseWriter, r *http.Request) {
	modified := s.lastModified()
	stream, err := s.svc.StreamInfo(r.PathValue("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notModified(w, r, modified) {
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

// handleListExtensions serves both the recommended stream (no key) and an
// explicit stream. platformOnly defaults to true.
func (s *Server) handleListExtensions(w http.ResponseWriter, r *http.Request) {
	modified := s.lastModified()
	q := r.URL.Query()
	query := catalog.ExtensionQuery{
		PlatformOnly: true,
		ID:           q.Get("id"),
		Filter:       q.Get("filter"),
	}
	if v := q.Get("platformOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid platformOnly: " + v})
			return
		}
		query.PlatformOnly = b
	}

	exts, err := s.svc.ListExtensions(r.PathValue("key"), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notModified(w, r, modified) {
		return
	}
	writeJSON(w, http.StatusOK, exts)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.svc.Presets(r.PathValue("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if presets == nil {
		presets = []domain.Preset{}
	}
	writeJSON(w, http.StatusOK, presets)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body resolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	req, err := s.svc.ResolveProject(body.StreamKey, body.ProjectRequest)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resolveResponse{
		StreamKey:   req.Platform.Stream().Key,
		Extensions:  req.Extensions,
		JavaVersion: req.JavaVersion,
		BuildTool:   string(req.BuildTool),
		GroupID:     req.GroupID,
		ArtifactID:  req.ArtifactID,
		Version:     req.Version,
		NoCode:      req.NoCode,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.svc.TriggerRefresh(ctx)

	outcome := logger.AuditOutcomeSuccess
	meta := map[string]any{"remote_addr": r.RemoteAddr}
	switch {
	case errors.Is(err, domain.ErrRefreshThrottled):
		outcome = logger.AuditOutcomeDenied
	case err != nil:
		outcome = logger.AuditOutcomeFailure
		meta["error"] = err.Error()
	default:
		meta["outcome"] = string(res.Outcome)
		meta["cycle_id"] = res.CycleID
	}
	s.opts.Audit.LogRefresh(ctx, "manual", outcome, meta)

	if errors.Is(err, domain.ErrRefreshThrottled) {
		writeError(w, r, err)
		return
	}
	// Failed cycles are reported with their result and a 502.
	if err != nil && res.CycleID == "" {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	h := s.svc.Health()
	status := http.StatusOK
	if !h.Loaded {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

// lastModified returns the build time of the published snapshot, or the zero
// time before the first publish. Handlers read it before querying, so a
// concurrent publish can only make the header older than the body.
func (s *Server) lastModified() time.Time {
	snap, err := s.svc.Snapshot()
	if err != nil {
		return time.Time{}
	}
	return snap.BuiltAt().UTC().Truncate(time.Second)
}

// notModified sets Last-Modified and answers conditional requests once the
// query succeeded. It reports whether the response is complete.
func notModified(w http.ResponseWriter, r *http.Request, modified time.Time) bool {
	if modified.IsZero() {
		return false
	}
	w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))

	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		if t, err := http.ParseTime(ims); err == nil && !modified.After(t) {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRefreshThrottled):
		return http.StatusTooManyRequests
	case domain.IsCallerError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.LoggerFrom(r.Context()).Warn("request failed",
			"path", r.URL.Path,
			"status", status,
			logger.WithError(err),
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		getLogger("http").Debug("failed to write response", logger.WithError(err))
	}
}
