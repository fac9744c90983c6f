package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_ZeroSpecNeverBlocks(t *testing.T) {
	lim := New(Spec{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	for i := 0; i < 100; i++ {
		require.NoError(t, lim.Acquire(ctx))
	}
}

func TestLimiter_SpacesSlotsAcrossWindow(t *testing.T) {
	lim := New(Spec{Times: 10, Per: time.Second})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Acquire(context.Background()))
	}
	elapsed := time.Since(start)

	// burst of one, then two refills at 100ms each
	require.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)
}

func TestLimiter_AcquireHonorsCancellation(t *testing.T) {
	lim := New(Spec{Times: 1, Per: time.Hour})
	require.NoError(t, lim.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := lim.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_AcquireFailsFastOnShortDeadline(t *testing.T) {
	lim := New(Spec{Times: 1, Per: time.Hour})
	require.NoError(t, lim.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := lim.Acquire(ctx)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestLimiter_SetSpecSwapsThrottle(t *testing.T) {
	lim := New(Spec{Times: 1, Per: time.Hour})
	require.NoError(t, lim.Acquire(context.Background()))

	lim.SetSpec(Spec{})
	require.Equal(t, Spec{}, lim.Spec())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, lim.Acquire(ctx))
}
