package clock_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/stretchr/testify/require"
)

func TestFakeClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("now stands still until advanced", func(t *testing.T) {
		c := clock.Fake(start)
		require.Equal(t, start, c.Now())

		c.Advance(5 * time.Second)
		require.Equal(t, start.Add(5*time.Second), c.Now())
	})

	t.Run("ticker fires on advance", func(t *testing.T) {
		c := clock.Fake(start)
		tk := c.NewTicker(time.Second)
		defer tk.Stop()

		select {
		case <-tk.C:
			t.Fatal("ticker fired before advance")
		default:
		}

		c.Advance(time.Second)
		select {
		case got := <-tk.C:
			require.Equal(t, start.Add(time.Second), got)
		default:
			t.Fatal("ticker did not fire")
		}
	})

	t.Run("stopped ticker never fires", func(t *testing.T) {
		c := clock.Fake(start)
		tk := c.NewTicker(time.Second)
		tk.Stop()

		c.Advance(3 * time.Second)
		select {
		case <-tk.C:
			t.Fatal("stopped ticker fired")
		default:
		}
	})

	t.Run("non-positive interval panics", func(t *testing.T) {
		c := clock.Fake(start)
		require.Panics(t, func() { c.NewTicker(0) })
	})
}
