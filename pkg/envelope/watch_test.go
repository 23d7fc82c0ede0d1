package envelope

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/stretchr/testify/require"
)

func TestWatchDeviceLifecycle(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	key := base64.URLEncoding.EncodeToString(raw)

	port := filepath.Join(t.TempDir(), "ttyKEY0")
	require.NoError(t, os.WriteFile(port, nil, 0o600))

	keys, err := NewFileKeyStore(t.TempDir())
	require.NoError(t, err)

	env := New(&DeviceProvider{Port: port, Open: pipeOpener(t, key)}, keys, nil)
	events := env.Subscribe()

	require.NoError(t, env.Load(context.Background()))
	require.Equal(t, KeyAvailable, <-events)

	fc := clock.Fake(time.Unix(1_700_000_000, 0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.Watch(ctx, fc, time.Second) }()

	// Unplug: the key must go away and stay unusable.
	require.NoError(t, os.Remove(port))
	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		return !env.Available()
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, KeyLost, <-events)

	_, _, err = env.Encrypt(context.Background(), "secret")
	require.ErrorIs(t, err, ErrUnavailable)

	// Plug back in: the next tick reloads.
	require.NoError(t, os.WriteFile(port, nil, 0o600))
	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		return env.Available()
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, KeyAvailable, <-events)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchEnvProviderReturnsImmediately(t *testing.T) {
	t.Parallel()

	keys, err := NewFileKeyStore(t.TempDir())
	require.NoError(t, err)

	env := New(EnvProvider{Key: base64.URLEncoding.EncodeToString(make([]byte, 32))}, keys, nil)
	require.NoError(t, env.Watch(context.Background(), clock.Fake(time.Now()), time.Second))
}
