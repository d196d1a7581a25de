package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Rotichtonny/TenaRentals/internal/app"
	"github.com/Rotichtonny/TenaRentals/internal/featureflags"
	"github.com/Rotichtonny/TenaRentals/internal/handler"
	"github.com/Rotichtonny/TenaRentals/internal/infrastructure/logger"
	"github.com/Rotichtonny/TenaRentals/internal/observability/metrics"
	"github.com/Rotichtonny/TenaRentals/internal/observability/tracing"
	"github.com/Rotichtonny/TenaRentals/internal/security/middleware"
	"github.com/Rotichtonny/TenaRentals/internal/security/ratelimit"
	"github.com/Rotichtonny/TenaRentals/internal/worker"
	"github.com/Rotichtonny/TenaRentals/pkg/config"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	flags := featureflags.Load()

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting TenaRentals server",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.Storage),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "tenarentals", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Storage, cache and services
	a, err := app.New(ctx, cfg, flags, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()
	if err := a.SeedIfEnabled(ctx); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Handlers
	checks := map[string]handler.Check{}
	if a.DB != nil {
		checks["postgres"] = a.DB.Health
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Ping
	}
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer rateLimiter.Stop()

	router := handler.Router{
		Auth:          handler.NewAuthHandler(a.Identity, a.Stats, flags.SelfRegistration, log),
		Properties:    handler.NewPropertyHandler(a.Properties, log),
		Leases:        handler.NewLeaseHandler(a.Bookings, a.Agreements, a.Maintenance, log),
		Notifications: handler.NewNotificationHandler(a.Hub, log, cfg.CORSAllowedOrigins),
		Health:        handler.NewHealthHandler(checks, log),
		Authenticate:  middleware.Authenticate(a.Identity, log),
		Limit:         middleware.RateLimit(rateLimiter, log),
	}

	// Chain: CORS -> tracing -> request ID -> content type -> metrics -> mux.
	// Metrics wraps the mux directly so it can read the matched pattern.
	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})
	root := co.Handler(
		otelhttp.NewHandler(
			middleware.RequestID(log)(
				middleware.ValidateJSONContentType(log)(
					metrics.HTTPMetricsMiddleware(router.Mux()),
				),
			),
			"tenarentals",
		),
	)

	// 5. Background reconcile worker
	var publisher worker.Publisher
	if flags.AutoPublish {
		publisher = a.Properties
	}
	reconcileWorker := worker.NewReconcileWorker(a.Agreements, publisher, a.Locker, log, cfg.ReconcileSchedule)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := reconcileWorker.Start(ctx); err != nil {
			log.Error("reconcile worker failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// 6. HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("rate_limit_per_minute", cfg.RateLimitPerMinute),
		slog.Bool("auto_publish", flags.AutoPublish),
		slog.Bool("self_registration", flags.SelfRegistration),
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	<-workerDone
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("failed to flush traces", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
