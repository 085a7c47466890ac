package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Do(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls, retries := 0, 0
		err := policy.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return shared.ErrConcurrencyConflict
			}
			return nil
		}, func(int, error) { retries++ })
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, retries)
	})

	t.Run("does not retry business errors", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return shared.ErrInvalidAmount
		}, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidAmount)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops at max attempts", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func() error {
			calls++
			return transientErr("lock timeout")
		}, nil)
		assert.ErrorIs(t, err, shared.ErrTransientFailure)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		slow := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
		err := slow.Do(ctx, func() error {
			calls++
			return shared.ErrConcurrencyConflict
		}, nil)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
		assert.Equal(t, 1, calls)
	})
}

func TestRetryPolicy_DelayIsBounded(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	for attempt := 1; attempt <= 10; attempt++ {
		delay := policy.delay(attempt)
		assert.LessOrEqual(t, delay, 50*time.Millisecond)
		assert.GreaterOrEqual(t, delay, 5*time.Millisecond)
	}
	assert.Zero(t, RetryPolicy{}.delay(1))
}
