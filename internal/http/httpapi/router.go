package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// Options configures router construction.
type Options struct {
	App    *handlers.App
	Config *infra.Config
	Logger infra.Logger
	// Static serves generated assets when a local file store is in use.
	Static http.Handler
}

// NewRouter assembles the public API surface.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.Config.AllowedOrigins),
	)

	r.Get("/v1/healthz", opts.App.Health)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.With(middleware.RateLimit(opts.Config.RateLimitPerMin, time.Minute)).
			Post("/", opts.App.CreateJob)
		r.Get("/{job_id}", opts.App.JobStatus)
		r.Get("/{job_id}/result", opts.App.JobResult)
	})

	r.Get("/v1/tenants/{tenant_id}/balance", opts.App.TenantBalance)

	if opts.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", opts.Static))
	}

	return r
}
