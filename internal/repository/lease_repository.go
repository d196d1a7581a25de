package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rotichtonny/TenaRentals/internal/infrastructure/redis"
)

// LeaseLocker hands out short exclusive leases on named jobs
type LeaseLocker interface {
	// Acquire returns a release func when the lease was taken, or ok=false if another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// RedisLeaseLocker takes leases with SET NX so only one server instance
// runs a job at a time. Leases expire on their own if the holder dies.
type RedisLeaseLocker struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewRedisLeaseLocker creates a lease locker backed by Redis
func NewRedisLeaseLocker(client *redis.Client, logger *slog.Logger) *RedisLeaseLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLeaseLocker{redis: client, logger: logger}
}

func (l *RedisLeaseLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := "lease:" + name
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := l.redis.DeleteIfEquals(ctx, key, token); err != nil {
			l.logger.Warn("failed to release lease", slog.String("lease", name), slog.String("error", err.Error()))
		}
	}
	l.logger.Debug("lease acquired", slog.String("lease", name))
	return release, true, nil
}

// LocalLeaseLocker serialises jobs within a single process
type LocalLeaseLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocalLeaseLocker creates an in-process lease locker
func NewLocalLeaseLocker() *LocalLeaseLocker {
	return &LocalLeaseLocker{held: map[string]time.Time{}, now: time.Now}
}

func (l *LocalLeaseLocker) Acquire(_ context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if until, ok := l.held[name]; ok && now.Before(until) {
		return nil, false, nil
	}
	until := now.Add(ttl)
	l.held[name] = until
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[name].Equal(until) {
			delete(l.held, name)
		}
	}, true, nil
}
