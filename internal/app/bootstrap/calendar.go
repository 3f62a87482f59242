package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-calendar/internal/api/router"
	"github.com/wolfman30/clinic-calendar/internal/appointments"
	"github.com/wolfman30/clinic-calendar/internal/calendar"
	"github.com/wolfman30/clinic-calendar/internal/calendar/viewstate"
	appconfig "github.com/wolfman30/clinic-calendar/internal/config"
	"github.com/wolfman30/clinic-calendar/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-calendar/internal/http/middleware"
	"github.com/wolfman30/clinic-calendar/internal/observability/metrics"
	"github.com/wolfman30/clinic-calendar/internal/preferences"
	"github.com/wolfman30/clinic-calendar/internal/sessions"
	"github.com/wolfman30/clinic-calendar/pkg/logging"
)

// Runtime is the wired calendar service.
type Runtime struct {
	Redis    *redis.Client
	DB       *pgxpool.Pool
	Backend  *appointments.Client
	Fetcher  *calendar.Fetcher
	Metrics  *metrics.CalendarMetrics
	Sessions *sessions.Manager
	Janitor  *sessions.Janitor
	Limiter  *httpmiddleware.RateLimiter
	Handler  http.Handler
}

// Build wires every component from cfg. Redis and Postgres are optional:
// without Redis sessions live only in memory, without Postgres the
// preferences endpoints are not mounted.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := viewstate.LoadSettingsFile(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	backend, err := appointments.New(appointments.Config{
		BaseURL: cfg.BackendBaseURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.BackendTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	rt := &Runtime{Backend: backend}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.Metrics = metrics.NewCalendarMetrics(reg)

	loc := cfg.Location()
	rt.Fetcher = calendar.NewFetcher(calendar.FetcherConfig{
		Source:    backend,
		Location:  loc,
		WeekStart: calendar.ParseWeekday(cfg.QueryWeekStart, time.Monday),
		Observer:  rt.Metrics,
		Logger:    logger.Component("calendar"),
	})

	rt.Redis = BuildRedisClient(ctx, cfg, logger, true)
	rt.DB, err = BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	firstDay := calendar.ParseWeekday(cfg.FirstDayOfWeek, time.Sunday)
	sessionCfg := sessions.Config{
		Events:       rt.Fetcher,
		Appointments: backend,
		Defaults: viewstate.Preferences{
			View:           calendar.ParseView(cfg.DefaultView),
			DaysCount:      cfg.DaysCount,
			TimeFormat:     viewstate.TimeFormat(cfg.TimeFormat),
			Locale:         cfg.Locale,
			FirstDayOfWeek: firstDay,
			Settings:       settings,
		},
		Controller:  rt.Metrics,
		Observer:    rt.Metrics,
		IdleTimeout: cfg.SessionIdle,
		Logger:      logger,
	}
	if rt.Redis != nil {
		sessionCfg.Store = sessions.NewRedisStore(rt.Redis, cfg.SessionTTL)
	}

	var prefsHandler *handlers.PreferencesHandler
	if rt.DB != nil {
		repo := preferences.NewRepository(rt.DB)
		sessionCfg.Preferences = repo
		prefsHandler = handlers.NewPreferencesHandler(repo, logger.Component("preferences"))
	}

	rt.Sessions = sessions.NewManager(sessionCfg)
	rt.Janitor, err = sessions.NewJanitor(rt.Sessions, cfg.JanitorSchedule, logger)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	if cfg.RateLimitRPS > 0 {
		rt.Limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	layout := calendar.DefaultLayoutOptions()
	rt.Handler = router.New(&router.Config{
		Logger: logger,
		Calendar: handlers.NewCalendarHandler(handlers.CalendarConfig{
			Events:         rt.Fetcher,
			FirstDayOfWeek: firstDay,
			Settings:       settings,
			Layout:         layout,
			Logger:         logger.Component("calendar"),
		}),
		Sessions:           handlers.NewSessionHandler(rt.Sessions, logger.Component("sessions")),
		Pickers:            handlers.NewPickerHandler(backend, logger.Component("pickers")),
		Preferences:        prefsHandler,
		HealthChecks:       rt.healthChecks(),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rt.Limiter,
	})

	logger.Info("calendar runtime ready",
		"timezone", loc.String(),
		"redis", rt.Redis != nil,
		"postgres", rt.DB != nil,
	)
	return rt, nil
}

func (rt *Runtime) healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if rt.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() }
	}
	if rt.DB != nil {
		checks["postgres"] = rt.DB.Ping
	}
	return checks
}

// Close releases the Redis client and database pool.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.DB != nil {
		rt.DB.Close()
	}
}
