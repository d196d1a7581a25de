package retry

import (
	"context"
	"errors"
	"fmt"
)

// ErrContention is returned when every compare-and-set attempt lost the race.
var ErrContention = errors.New("too much contention")

// Versioned is implemented by rows guarded by an optimistic version counter.
type Versioned interface {
	GetRowVersion() int64
}

// CAS describes one read, mutate, conditional-write cycle.
type CAS[T Versioned] struct {
	// Load reads the current row.
	Load func(ctx context.Context) (T, error)
	// Mutate validates and applies the change in memory. Its errors end the loop unchanged.
	Mutate func(current T) error
	// Save writes current only if the stored version still equals expected.
	Save func(ctx context.Context, current T, expected int64) (bool, error)
}

// UpdateWithRetry runs the cycle until a write lands or maxAttempts races are lost.
// Every attempt re-reads and re-validates, so a decision never rests on a stale row.
func UpdateWithRetry[T Versioned](ctx context.Context, maxAttempts int, c CAS[T]) (T, int, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	conflicts := 0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, conflicts, err
		}
		current, err := c.Load(ctx)
		if err != nil {
			return zero, conflicts, err
		}
		expected := current.GetRowVersion()
		if err := c.Mutate(current); err != nil {
			return zero, conflicts, err
		}
		ok, err := c.Save(ctx, current, expected)
		if err != nil {
			return zero, conflicts, err
		}
		if ok {
			return current, conflicts, nil
		}
		conflicts++
	}
	return zero, conflicts, fmt.Errorf("%w after %d attempts", ErrContention, maxAttempts)
}
