package server

import (
	"fmt"
	"net/http"
	"time"

	"launcher/internal/logger"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestContext attaches a request id, a command context and a request
// scoped logger to every request.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cc := logger.NewDaemonContext(r.Method + " " + r.URL.Path)
		if id := r.Header.Get("X-Request-Id"); id != "" {
			cc.RequestID = id
		}
		l := getLogger("http").With("request_id", cc.RequestID)

		ctx := logger.WithCommandContext(r.Context(), cc)
		ctx = logger.WithLogger(ctx, l)

		w.Header().Set("X-Request-Id", cc.RequestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		l.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(cc.Timestamp),
		)
	})
}

// recoverer turns a handler panic into a 500 response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.LoggerFrom(r.Context()).Error("handler panicked",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(v),
					logger.WithStack(),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
