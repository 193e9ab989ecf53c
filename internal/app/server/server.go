package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrops/internal/domain/audit"
	"hrops/internal/domain/auth"
	"hrops/internal/domain/core"
	"hrops/internal/domain/leave"
	"hrops/internal/domain/notifications"
	"hrops/internal/domain/reports"
	"hrops/internal/platform/config"
	"hrops/internal/platform/db"
	"hrops/internal/platform/email"
	"hrops/internal/platform/jobs"
	"hrops/internal/platform/metrics"
	audithandler "hrops/internal/transport/http/handlers/audit"
	authhandler "hrops/internal/transport/http/handlers/auth"
	corehandler "hrops/internal/transport/http/handlers/core"
	leavehandler "hrops/internal/transport/http/handlers/leave"
	notificationshandler "hrops/internal/transport/http/handlers/notifications"
	reportshandler "hrops/internal/transport/http/handlers/reports"
	"hrops/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

// New connects, migrates and seeds per the config, then assembles the router.
// It is the composition root for every store, engine and handler.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	collector := metrics.New()
	jobsSvc := jobs.New(pool)

	authStore := auth.NewStore(pool)
	coreStore := core.NewStore(pool)
	leaveStore := leave.NewStore(pool)
	engine := leave.NewEngine(leaveStore, time.Month(cfg.FiscalYearStartMonth))
	engine.OnConflictRetry = collector.RecordConflictRetry

	mailer := email.New(cfg)
	notify := notifications.NewService(pool, mailer, cfg.EmailFrom)
	reportsSvc := reports.NewService(pool)
	auditRecorder := audit.New(pool)
	idem := middleware.NewIdempotencyStore(pool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics(collector))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Total-Count", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(collector.Snapshot()); err != nil {
				slog.Warn("metrics encode failed", "err", err)
			}
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authStore, cfg.JWTSecret, cfg.TokenTTL, mailer, cfg.EmailFrom)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/refresh", authHandler.HandleRefresh)
		r.Post("/auth/request-reset", authHandler.HandleRequestReset)
		r.Post("/auth/reset", authHandler.HandleResetPassword)
		r.Get("/auth/me", authHandler.HandleMe)
		r.Post("/auth/mfa/setup", authHandler.HandleMFASetup)
		r.Post("/auth/mfa/enable", authHandler.HandleMFAEnable)
		r.Post("/auth/mfa/disable", authHandler.HandleMFADisable)

		corehandler.NewHandler(coreStore, authStore).RegisterRoutes(r)
		leavehandler.NewHandler(engine, leaveStore, authStore, notify, jobsSvc, idem).RegisterRoutes(r)
		audithandler.NewHandler(auditRecorder, authStore).RegisterRoutes(r)
		reportshandler.NewHandler(reportsSvc, authStore, jobsSvc, cfg.OverdueAfter).RegisterRoutes(r)
		notificationshandler.NewHandler(notify, authStore).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  router,
		Jobs:    jobsSvc,
		Metrics: collector,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
