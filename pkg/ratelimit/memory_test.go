package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestMemoryCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("cooldown blocks until window passes", func(t *testing.T) {
		fc := clock.Fake(time.Unix(1_700_000_000, 0))
		l := ratelimit.NewMemory(fc)

		blocked, err := l.Check(ctx, "login", "ip:1.2.3.4", 5*time.Second)
		require.NoError(t, err)
		require.False(t, blocked)

		blocked, err = l.Check(ctx, "login", "ip:1.2.3.4", 5*time.Second)
		require.NoError(t, err)
		require.True(t, blocked)

		fc.Advance(5 * time.Second)

		blocked, err = l.Check(ctx, "login", "ip:1.2.3.4", 5*time.Second)
		require.NoError(t, err)
		require.False(t, blocked)
	})

	t.Run("blocked call does not extend the window", func(t *testing.T) {
		fc := clock.Fake(time.Unix(1_700_000_000, 0))
		l := ratelimit.NewMemory(fc)

		_, _ = l.Check(ctx, "post", "u1", 5*time.Second)
		fc.Advance(4 * time.Second)
		blocked, _ := l.Check(ctx, "post", "u1", 5*time.Second)
		require.True(t, blocked)

		fc.Advance(time.Second)
		blocked, _ = l.Check(ctx, "post", "u1", 5*time.Second)
		require.False(t, blocked)
	})

	t.Run("categories and keys are independent", func(t *testing.T) {
		fc := clock.Fake(time.Unix(1_700_000_000, 0))
		l := ratelimit.NewMemory(fc)

		blocked, _ := l.Check(ctx, "login", "a", time.Minute)
		require.False(t, blocked)
		blocked, _ = l.Check(ctx, "login", "b", time.Minute)
		require.False(t, blocked)
		blocked, _ = l.Check(ctx, "post", "a", time.Minute)
		require.False(t, blocked)
	})

	t.Run("concurrent callers admit exactly one", func(t *testing.T) {
		fc := clock.Fake(time.Unix(1_700_000_000, 0))
		l := ratelimit.NewMemory(fc)

		var admitted atomic.Int32
		var wg sync.WaitGroup
		for range 64 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				blocked, err := l.Check(ctx, "login", "same", time.Minute)
				if err == nil && !blocked {
					admitted.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), admitted.Load())
	})
}

func TestMemorySweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fc := clock.Fake(time.Unix(1_700_000_000, 0))
	l := ratelimit.NewMemory(fc)

	_, _ = l.Check(ctx, "login", "short", time.Second)
	_, _ = l.Check(ctx, "login", "long", time.Hour)
	require.Equal(t, 2, l.Len())

	fc.Advance(2 * time.Second)
	require.Equal(t, 1, l.Sweep())
	require.Equal(t, 1, l.Len())

	blocked, _ := l.Check(ctx, "login", "long", time.Hour)
	require.True(t, blocked)
}
