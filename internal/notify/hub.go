// Package notify fans lifecycle events out to the users they concern and
// keeps a short per-user history for clients that reconnect.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rotichtonny/TenaRentals/internal/observability/metrics"
)

// Notification tells one user that an entity they are party to changed
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entityId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// History stores the most recent notifications of each user
type History interface {
	Append(ctx context.Context, n Notification) error
	Recent(ctx context.Context, userID string, limit int) ([]Notification, error)
}

const subscriberBuffer = 16

// Hub delivers notifications to live subscribers and records them in a History
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[chan Notification]struct{}
	history History
	logger  *slog.Logger
	now     func() time.Time
}

// NewHub creates a hub. A nil history keeps nothing between connections.
func NewHub(history History, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:    map[string]map[chan Notification]struct{}{},
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Publish records n and pushes it to every open subscription of its user.
// Slow subscribers miss live events rather than block the caller; the
// history still has them.
func (h *Hub) Publish(ctx context.Context, n Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = h.now()
	}
	if h.history != nil {
		if err := h.history.Append(ctx, n); err != nil {
			h.logger.Warn("failed to record notification",
				slog.String("user_id", n.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
		default:
			h.logger.Debug("dropping notification for slow subscriber", slog.String("user_id", n.UserID))
		}
	}
}

// Subscribe opens a live feed for userID. cancel must be called to release it.
func (h *Hub) Subscribe(userID string) (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = map[chan Notification]struct{}{}
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()
	metrics.SubscriberJoined()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
			metrics.SubscriberLeft()
		})
	}
}

// Recent returns up to limit notifications for userID, newest first
func (h *Hub) Recent(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if h.history == nil {
		return nil, nil
	}
	return h.history.Recent(ctx, userID, limit)
}
