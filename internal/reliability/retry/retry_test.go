package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	version int64
	value   int
}

func (r *row) GetRowVersion() int64 { return r.version }

func fastConfig() *Config {
	return &Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, BackoffMultiplier: 2}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(), nil, "flaky", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("not yet")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad credentials")
	cfg := fastConfig()
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	_, err := Do(context.Background(), cfg, nil, "connect", func(ctx context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := &Config{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffMultiplier: 2}
	assert.Equal(t, time.Second, Backoff(0, cfg))
	assert.Equal(t, 2*time.Second, Backoff(1, cfg))
	assert.Equal(t, 3*time.Second, Backoff(5, cfg))
}

func TestUpdateWithRetryRereadsAfterLostRace(t *testing.T) {
	stored := &row{version: 1, value: 10}
	raced := false

	got, conflicts, err := UpdateWithRetry(context.Background(), 3, CAS[*row]{
		Load: func(ctx context.Context) (*row, error) {
			cp := *stored
			return &cp, nil
		},
		Mutate: func(r *row) error {
			r.value++
			return nil
		},
		Save: func(ctx context.Context, r *row, expected int64) (bool, error) {
			if !raced {
				// another writer lands first
				raced = true
				stored.value = 20
				stored.version++
			}
			if stored.version != expected {
				return false, nil
			}
			r.version = expected + 1
			*stored = *r
			return true, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 21, got.value)
	assert.Equal(t, int64(3), stored.version)
}

func TestUpdateWithRetryGivesUp(t *testing.T) {
	_, conflicts, err := UpdateWithRetry(context.Background(), 2, CAS[*row]{
		Load:   func(ctx context.Context) (*row, error) { return &row{}, nil },
		Mutate: func(r *row) error { return nil },
		Save:   func(ctx context.Context, r *row, expected int64) (bool, error) { return false, nil },
	})
	assert.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 2, conflicts)
}

func TestUpdateWithRetryMutateErrorSkipsSave(t *testing.T) {
	refused := errors.New("refused")
	saved := false
	_, _, err := UpdateWithRetry(context.Background(), 3, CAS[*row]{
		Load:   func(ctx context.Context) (*row, error) { return &row{}, nil },
		Mutate: func(r *row) error { return refused },
		Save: func(ctx context.Context, r *row, expected int64) (bool, error) {
			saved = true
			return true, nil
		},
	})
	assert.ErrorIs(t, err, refused)
	assert.False(t, saved)
}
