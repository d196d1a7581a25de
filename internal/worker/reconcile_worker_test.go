package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rotichtonny/TenaRentals/internal/repository"
	"github.com/Rotichtonny/TenaRentals/internal/service"
)

type fakeReconciler struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeReconciler) Reconcile(_ context.Context, now time.Time) (service.ReconcileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return service.ReconcileResult{Due: 1, Activated: 1}, f.err
}

func (f *fakeReconciler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePublisher struct{ calls int }

func (f *fakePublisher) AutoPublish(context.Context) (int, error) {
	f.calls++
	return 2, nil
}

type deniedLocker struct{ err error }

func (d deniedLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, d.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunOncePassesClockAndPublishes(t *testing.T) {
	r, p := &fakeReconciler{}, &fakePublisher{}
	w := NewReconcileWorker(r, p, repository.NewLocalLeaseLocker(), quiet(), "@every 1m")
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	require.True(t, w.RunOnce(context.Background()))
	assert.Equal(t, []time.Time{at}, r.calls)
	assert.Equal(t, 1, p.calls)

	// the lease is released after each sweep
	require.True(t, w.RunOnce(context.Background()))
	assert.Equal(t, 2, r.count())
}

func TestRunOnceSkipsWithoutLease(t *testing.T) {
	r := &fakeReconciler{}
	w := NewReconcileWorker(r, nil, deniedLocker{}, quiet(), "@every 1m")
	assert.False(t, w.RunOnce(context.Background()))

	w = NewReconcileWorker(r, nil, deniedLocker{err: errors.New("redis down")}, quiet(), "@every 1m")
	assert.False(t, w.RunOnce(context.Background()))
	assert.Zero(t, r.count())
}

func TestRunOnceStillPublishesWhenReconcileFails(t *testing.T) {
	r, p := &fakeReconciler{err: errors.New("db gone")}, &fakePublisher{}
	w := NewReconcileWorker(r, p, repository.NewLocalLeaseLocker(), quiet(), "@every 1m")
	assert.True(t, w.RunOnce(context.Background()))
	assert.Equal(t, 1, p.calls)
}

func TestStartRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	r := &fakeReconciler{}
	w := NewReconcileWorker(r, nil, repository.NewLocalLeaseLocker(), quiet(), "@every 1h")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	assert.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	w := NewReconcileWorker(&fakeReconciler{}, nil, repository.NewLocalLeaseLocker(), quiet(), "not a schedule")
	assert.Error(t, w.Start(context.Background()))
}
