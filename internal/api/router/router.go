package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-calendar/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-calendar/internal/http/middleware"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger      *logging.Logger
	Calendar    *handlers.CalendarHandler
	Sessions    *handlers.SessionHandler
	Pickers     *handlers.PickerHandler
	Preferences *handlers.PreferencesHandler // nil when no database is configured

	HealthChecks       map[string]handlers.HealthCheck
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(httpmiddleware.CORSConfig{Origins: cfg.CORSAllowedOrigins}))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}
		api.Use(identifyUser)
		if cfg.Calendar != nil {
			api.With(middleware.Compress(5)).Mount("/calendar", cfg.Calendar.Routes())
		}
		if cfg.Sessions != nil {
			api.Mount("/sessions", cfg.Sessions.Routes())
		}
		if cfg.Pickers != nil {
			api.Mount("/pickers", cfg.Pickers.Routes())
		}
		if cfg.Preferences != nil {
			api.With(requireUserID).Mount("/preferences", cfg.Preferences.Routes())
		}
	})

	return r
}
