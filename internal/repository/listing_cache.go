package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/infrastructure/redis"
	"github.com/Rotichtonny/TenaRentals/internal/observability/metrics"
	"github.com/Rotichtonny/TenaRentals/internal/reliability/circuitbreaker"
	"github.com/Rotichtonny/TenaRentals/pkg/cache"
)

const listingPrefix = "listings:"

// MemoryListingCache keeps public search results in process memory
type MemoryListingCache struct {
	mu  sync.Mutex
	gen uint64
	c   *cache.Cache[[]*domain.Property]
	ttl time.Duration
}

// NewMemoryListingCache creates an in-process listing cache
func NewMemoryListingCache(ttl time.Duration) *MemoryListingCache {
	return &MemoryListingCache{c: cache.New[[]*domain.Property](), ttl: ttl}
}

func (m *MemoryListingCache) Get(_ context.Context, key string) ([]*domain.Property, string, bool) {
	m.mu.Lock()
	gen := strconv.FormatUint(m.gen, 10)
	m.mu.Unlock()

	v, ok := m.c.Get(listingPrefix + key)
	if !ok {
		metrics.ObserveListingCache("miss")
		return nil, gen, false
	}
	metrics.ObserveListingCache("hit")
	return v, gen, true
}

func (m *MemoryListingCache) Set(_ context.Context, gen, key string, properties []*domain.Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != strconv.FormatUint(m.gen, 10) {
		return
	}
	m.c.Set(listingPrefix+key, properties, m.ttl)
}

func (m *MemoryListingCache) Invalidate(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.c.Invalidate(listingPrefix)
}

// RedisListingCache shares search results between server instances.
// Keys embed a generation counter; Invalidate bumps it so old entries
// are never read again and simply expire.
type RedisListingCache struct {
	redis   *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	logger  *slog.Logger
}

// NewRedisListingCache creates a listing cache backed by Redis
func NewRedisListingCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisListingCache {
	if logger == nil {
		logger = slog.Default()
	}
	cb := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	cb.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("listing cache breaker changed state",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &RedisListingCache{redis: client, breaker: cb, ttl: ttl, logger: logger}
}

func (r *RedisListingCache) generation(ctx context.Context) (string, error) {
	gen, err := r.redis.Get(ctx, listingPrefix+"gen")
	if redis.IsNil(err) {
		return "0", nil
	}
	return gen, err
}

func (r *RedisListingCache) Get(ctx context.Context, key string) ([]*domain.Property, string, bool) {
	var (
		out []*domain.Property
		gen string
	)
	hit := false
	err := r.breaker.Call(func() error {
		var err error
		gen, err = r.generation(ctx)
		if err != nil {
			return err
		}
		data, err := r.redis.Get(ctx, listingPrefix+gen+":"+key)
		if redis.IsNil(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(data), &out); err != nil {
			return fmt.Errorf("failed to decode cached listing: %w", err)
		}
		hit = true
		return nil
	})
	switch {
	case err != nil:
		metrics.ObserveListingCache("error")
		r.logger.Debug("listing cache read failed", slog.String("error", err.Error()))
		return nil, "", false
	case hit:
		metrics.ObserveListingCache("hit")
	default:
		metrics.ObserveListingCache("miss")
	}
	return out, gen, hit
}

// Set writes under the generation read by Get. After an Invalidate that
// generation is never read again, so a stale result is harmless.
func (r *RedisListingCache) Set(ctx context.Context, gen, key string, properties []*domain.Property) {
	if gen == "" {
		return
	}
	err := r.breaker.Call(func() error {
		data, err := json.Marshal(properties)
		if err != nil {
			return err
		}
		return r.redis.Set(ctx, listingPrefix+gen+":"+key, data, r.ttl)
	})
	if err != nil {
		r.logger.Debug("listing cache write failed", slog.String("error", err.Error()))
	}
}

func (r *RedisListingCache) Invalidate(ctx context.Context) {
	if _, err := r.redis.Incr(ctx, listingPrefix+"gen"); err != nil {
		r.breaker.RecordFailure()
		r.logger.Warn("failed to invalidate listing cache", slog.String("error", err.Error()))
	}
}
