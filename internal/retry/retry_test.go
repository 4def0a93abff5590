package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/newscast/internal/retry"
)

func TestBackoff(t *testing.T) {
	assert.Zero(t, retry.Backoff(time.Second, 0))
	assert.Zero(t, retry.Backoff(0, 3))

	base := 100 * time.Millisecond
	got := retry.Backoff(base, 1)
	assert.GreaterOrEqual(t, got, 150*time.Millisecond)
	assert.LessOrEqual(t, got, 250*time.Millisecond)

	for range 20 {
		got := retry.Backoff(time.Second, 40)
		assert.LessOrEqual(t, got, retry.MaxBackoff+retry.MaxBackoff/4)
		assert.GreaterOrEqual(t, got, retry.MaxBackoff-retry.MaxBackoff/4)
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient errors", func(t *testing.T) {
		calls := 0
		err := retry.Do(ctx, 3, time.Millisecond, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when attempts run out", func(t *testing.T) {
		calls := 0
		last := errors.New("still down")
		err := retry.Do(ctx, 2, time.Millisecond, func(context.Context) error {
			calls++
			return last
		})
		assert.ErrorIs(t, err, last)
		assert.Equal(t, 2, calls)
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		calls := 0
		bad := errors.New("unauthorized")
		err := retry.Do(ctx, 5, time.Millisecond, func(context.Context) error {
			calls++
			return retry.Permanent(bad)
		})
		assert.Equal(t, bad, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancellation interrupts the wait", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := retry.Do(cctx, 5, time.Hour, func(context.Context) error {
			calls++
			cancel()
			return errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retry.RetryableStatus(429))
	assert.True(t, retry.RetryableStatus(503))
	assert.False(t, retry.RetryableStatus(404))
	assert.False(t, retry.RetryableStatus(200))
}
