package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id that audit entries are correlated by.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// Entry is one audited action.
type Entry struct {
	ActorID    string
	ActorRole  string
	Action     string
	Resource   string
	ResourceID string
	Status     string
	Details    string
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

func (al *Logger) Log(ctx context.Context, e Entry) {
	al.logger.Info("audit",
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("resource_id", e.ResourceID),
		slog.String("actor_id", e.ActorID),
		slog.String("actor_role", e.ActorRole),
		slog.String("status", e.Status),
		slog.String("details", e.Details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogTransition records the outcome of a lifecycle transition attempt.
func (al *Logger) LogTransition(ctx context.Context, actorID, role, action, resource, resourceID string, err error) {
	status, details := "success", ""
	if err != nil {
		status, details = "failed", err.Error()
	}
	al.Log(ctx, Entry{ActorID: actorID, ActorRole: role, Action: action, Resource: resource, ResourceID: resourceID, Status: status, Details: details})
}

func (al *Logger) LogDenied(ctx context.Context, actorID, role, action, resource, resourceID, reason string) {
	al.Log(ctx, Entry{ActorID: actorID, ActorRole: role, Action: action, Resource: resource, ResourceID: resourceID, Status: "denied", Details: reason})
}
