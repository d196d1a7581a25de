package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Rotichtonny/TenaRentals/internal/notify"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 15 * time.Second
	recentLimit  = 50
)

// NotificationHandler serves a user's notification history and live feed
type NotificationHandler struct {
	hub            *notify.Hub
	logger         *slog.Logger
	allowedOrigins []string
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(hub *notify.Hub, logger *slog.Logger, allowedOrigins []string) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{hub: hub, logger: logger, allowedOrigins: allowedOrigins}
}

func (h *NotificationHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// Recent handles GET /api/notifications
func (h *NotificationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	list, err := h.hub.Recent(r.Context(), actor(r).ID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Stream handles GET /ws/notifications, pushing each new notification as a JSON text frame
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := actor(r).ID
	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	feed, cancel := h.hub.Subscribe(userID)
	defer cancel()
	logger := h.logger.With(slog.String("user_id", userID))
	logger.Debug("notification stream opened")

	// the read side only exists to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			logger.Debug("notification stream closed by client")
			return
		case n, ok := <-feed:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(n); err != nil {
				logger.Debug("notification write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
