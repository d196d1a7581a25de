// Package app assembles the rental engine from configuration. The server and
// the CLI share it so both run against the same storage and services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/featureflags"
	"github.com/Rotichtonny/TenaRentals/internal/infrastructure/redis"
	"github.com/Rotichtonny/TenaRentals/internal/notify"
	"github.com/Rotichtonny/TenaRentals/internal/repository"
	"github.com/Rotichtonny/TenaRentals/internal/repository/memory"
	"github.com/Rotichtonny/TenaRentals/internal/security"
	"github.com/Rotichtonny/TenaRentals/internal/security/audit"
	"github.com/Rotichtonny/TenaRentals/internal/security/auth"
	"github.com/Rotichtonny/TenaRentals/internal/service"
	"github.com/Rotichtonny/TenaRentals/pkg/config"
	"github.com/Rotichtonny/TenaRentals/pkg/database"
)

const notificationRetention = 7 * 24 * time.Hour

// App holds the wired services and the connections behind them
type App struct {
	Config *config.Config
	Flags  featureflags.Flags
	Logger *slog.Logger

	Store  domain.Store
	DB     *database.ConnectionPool
	Redis  *redis.Client
	Hub    *notify.Hub
	Locker repository.LeaseLocker
	Audit  *audit.Logger

	Identity    *service.IdentityService
	Properties  *service.PropertyService
	Bookings    *service.BookingService
	Agreements  *service.AgreementService
	Maintenance *service.MaintenanceService
	Stats       *service.StatsService
}

// New connects to the configured storage and builds every service. Redis is
// optional; without it caching, notification history and job leases stay in-process.
func New(ctx context.Context, cfg *config.Config, flags featureflags.Flags, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Flags: flags, Logger: logger}

	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		a.Store = memory.NewStore()
	default:
		pool, err := database.NewConnectionPool(ctx, database.FromConfig(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		a.DB = pool
		if err := repository.Migrate(ctx, pool.GetDB()); err != nil {
			a.Close()
			return nil, err
		}
		a.Store = repository.NewPostgresStore(pool.GetDB(), logger)
	}

	var (
		cache   domain.ListingCache = repository.NewMemoryListingCache(cfg.ListingCacheTTL)
		history notify.History      = notify.NewMemoryHistory(notify.DefaultHistorySize)
	)
	a.Locker = repository.NewLocalLeaseLocker()
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = client
		cache = repository.NewRedisListingCache(client, cfg.ListingCacheTTL, logger)
		history = notify.NewRedisHistory(client, notify.DefaultHistorySize, notificationRetention)
		a.Locker = repository.NewRedisLeaseLocker(client, logger)
	}

	a.Hub = notify.NewHub(history, logger)
	a.Audit = audit.NewLogger(logger)
	deps := service.Dependencies{
		Store:       a.Store,
		Access:      security.NewAccessControl(logger, a.Audit),
		Audit:       a.Audit,
		Notifier:    a.Hub,
		Logger:      logger,
		MaxAttempts: cfg.CASMaxAttempts,
	}
	a.Identity = service.NewIdentityService(deps, auth.NewTokenManager(cfg.JWTSecret, "tenarentals", cfg.JWTTTL))
	a.Properties = service.NewPropertyService(deps, cache)
	a.Bookings = service.NewBookingService(deps)
	a.Agreements = service.NewAgreementService(deps)
	a.Maintenance = service.NewMaintenanceService(deps)
	a.Stats = service.NewStatsService(deps)
	return a, nil
}

// SeedIfEnabled loads demo data when FLAG_SEED_DEMO_DATA is on
func (a *App) SeedIfEnabled(ctx context.Context) error {
	if !a.Flags.SeedDemoData {
		return nil
	}
	res, err := service.Seed(ctx, a.Store, time.Now(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	if !res.Skipped {
		a.Logger.Info("seeded demo data", slog.Int("users", res.Users), slog.Int("properties", res.Properties))
	}
	return nil
}

// Close releases the database and Redis connections
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
