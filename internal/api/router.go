// Package api exposes the report pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/opportunity-report/internal/model"
)

// Runner executes the report pipeline for one submission.
type Runner interface {
	Run(ctx context.Context, form model.FormSubmission) (*model.RunResult, error)
}

// Options configures the router.
type Options struct {
	// PublicDir is served read-only under /public. Empty disables it.
	PublicDir   string
	CORSOrigins []string
	// RateLimitPerMinute caps report requests per client IP. 0 disables it.
	RateLimitPerMinute int
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(runner Runner, opts Options) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	h := &reportHandler{runner: runner}
	limiter := newIPLimiter(opts.RateLimitPerMinute, time.Now)
	r.With(limiter.middleware).Post("/api/generate-report", h.generate)

	if opts.PublicDir != "" {
		r.Handle("/public/*", http.StripPrefix("/public", staticFiles(opts.PublicDir)))
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
