// Package http assembles the service's HTTP surface: middleware chain,
// domain handlers, health, and metrics.
package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "civreg/internal/platform/metrics"
	"civreg/pkg/platform/middleware/auth"
	"civreg/pkg/platform/middleware/metadata"
	"civreg/pkg/platform/middleware/requesttime"
	"civreg/pkg/requestcontext"
)

// Registrar is implemented by domain handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs.
type Deps struct {
	Logger   *slog.Logger
	Verifier auth.TokenVerifier
	Metrics  *platformmetrics.Metrics
	DB       *sql.DB
	Handlers []Registrar
}

// NewRouter builds the full router. Health and metrics are unauthenticated;
// everything else sits behind bearer auth.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(deps.Metrics.Middleware)
	r.Use(accessLog(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Verifier, deps.Logger))
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})

	return r
}

// requestIDMiddleware honors an inbound X-Request-ID or generates one, and
// echoes it back so clients can correlate.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "http request",
				"request_id", requestcontext.RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func handleHealth(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
