package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Rotichtonny/TenaRentals/internal/infrastructure/redis"
)

// DefaultHistorySize is how many notifications are kept per user
const DefaultHistorySize = 50

// MemoryHistory keeps a bounded list per user in process memory
type MemoryHistory struct {
	mu    sync.Mutex
	max   int
	items map[string][]Notification
}

func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &MemoryHistory{max: max, items: map[string][]Notification{}}
}

func (m *MemoryHistory) Append(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]Notification{n}, m.items[n.UserID]...)
	if len(list) > m.max {
		list = list[:m.max]
	}
	m.items[n.UserID] = list
	return nil
}

func (m *MemoryHistory) Recent(_ context.Context, userID string, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.items[userID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]Notification(nil), list...), nil
}

// RedisHistory keeps each user's notifications in a capped Redis list
type RedisHistory struct {
	redis *redis.Client
	max   int64
	ttl   time.Duration
}

func NewRedisHistory(client *redis.Client, max int, ttl time.Duration) *RedisHistory {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &RedisHistory{redis: client, max: int64(max), ttl: ttl}
}

func historyKey(userID string) string {
	return "notifications:" + userID
}

func (r *RedisHistory) Append(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := r.redis.PushCapped(ctx, historyKey(n.UserID), data, r.max, r.ttl); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	return nil
}

func (r *RedisHistory) Recent(ctx context.Context, userID string, limit int) ([]Notification, error) {
	stop := r.max - 1
	if limit > 0 && int64(limit) < r.max {
		stop = int64(limit) - 1
	}
	raw, err := r.redis.Range(ctx, historyKey(userID), 0, stop)
	if err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
