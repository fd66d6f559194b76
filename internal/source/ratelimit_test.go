package source_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanworth/scanworth/internal/source"
)

func TestRateLimiter_DailyQuota(t *testing.T) {
	t.Parallel()

	r := source.NewRateLimiter(1000, 10, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(ctx))
	}

	err := r.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrDailyQuotaExceeded)
	assert.Equal(t, int64(3), r.DailyCount())
	assert.Equal(t, int64(0), r.Remaining())
}

func TestRateLimiter_WindowReset(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := source.NewRateLimiter(
		1000, 10, 1,
		source.WithRateLimiterNowFunc(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx))
	require.ErrorIs(t, r.Wait(ctx), source.ErrDailyQuotaExceeded)

	// Move past the 24-hour window: quota resets.
	now = now.Add(25 * time.Hour)
	require.NoError(t, r.Wait(ctx))
	assert.Equal(t, int64(1), r.DailyCount())
}

func TestRateLimiter_ContextCancellation(t *testing.T) {
	t.Parallel()

	// Zero-rate limiter never admits: Wait must fail via the context.
	r := source.NewRateLimiter(0.0001, 1, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Wait(ctx)) // burst admits the first call
	assert.Error(t, r.Wait(ctx))
}
