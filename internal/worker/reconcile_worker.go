package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Rotichtonny/TenaRentals/internal/repository"
	"github.com/Rotichtonny/TenaRentals/internal/service"
)

const reconcileLease = "agreement-reconcile"

// Reconciler applies the time-driven agreement transitions that are due
type Reconciler interface {
	Reconcile(ctx context.Context, now time.Time) (service.ReconcileResult, error)
}

// Publisher lists approved properties without a manual publish step
type Publisher interface {
	AutoPublish(ctx context.Context) (int, error)
}

// ReconcileWorker runs the agreement sweep on a cron schedule. A lease keeps
// concurrent server instances from sweeping at the same time.
type ReconcileWorker struct {
	reconciler Reconciler
	publisher  Publisher
	locker     repository.LeaseLocker
	logger     *slog.Logger
	schedule   string
	timeout    time.Duration
	now        func() time.Time
}

// NewReconcileWorker creates a new reconcile worker. publisher may be nil when
// auto-publish is switched off.
func NewReconcileWorker(
	reconciler Reconciler,
	publisher Publisher,
	locker repository.LeaseLocker,
	logger *slog.Logger,
	schedule string,
) *ReconcileWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileWorker{
		reconciler: reconciler,
		publisher:  publisher,
		locker:     locker,
		logger:     logger,
		schedule:   schedule,
		timeout:    2 * time.Minute,
		now:        time.Now,
	}
}

// Start schedules the sweep and blocks until ctx is cancelled. The first
// sweep runs immediately so agreements due while the server was down catch up.
func (w *ReconcileWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", w.schedule, err)
	}

	w.logger.Info("reconcile worker started", slog.String("schedule", w.schedule))
	w.RunOnce(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("reconcile worker stopped")
	return nil
}

// RunOnce performs a single sweep if this instance holds the lease.
// It reports whether the sweep ran.
func (w *ReconcileWorker) RunOnce(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	release, ok, err := w.locker.Acquire(ctx, reconcileLease, w.timeout)
	if err != nil {
		w.logger.Error("failed to acquire reconcile lease", slog.String("error", err.Error()))
		return false
	}
	if !ok {
		w.logger.Debug("reconcile lease held elsewhere, skipping")
		return false
	}
	defer release()

	res, err := w.reconciler.Reconcile(ctx, w.now())
	if err != nil {
		w.logger.Error("agreement reconcile failed", slog.String("error", err.Error()))
	} else if res.Due > 0 {
		w.logger.Info("agreement reconcile finished",
			slog.Int("due", res.Due),
			slog.Int("activated", res.Activated),
			slog.Int("expired", res.Expired),
			slog.Int("skipped", res.Skipped),
			slog.Int("failed", res.Failed),
		)
	}

	if w.publisher != nil {
		n, err := w.publisher.AutoPublish(ctx)
		if err != nil {
			w.logger.Error("auto-publish failed", slog.String("error", err.Error()))
		} else if n > 0 {
			w.logger.Info("auto-published properties", slog.Int("count", n))
		}
	}
	return true
}
