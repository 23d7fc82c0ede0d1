package chat_test

import (
	"net/http"
	"testing"

	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/stretchr/testify/require"
)

// TestHealthEndpoints verifies liveness and readiness with an environment
// master key loaded.
func TestHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupChatContainer(t, nil)
	defer cleanup()

	client := chatsdk.NewClient(baseURL)

	live, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Encryption)
}

// TestReadinessWithoutKey verifies a key device that never appears leaves
// the service live but not ready.
func TestReadinessWithoutKey(t *testing.T) {
	baseURL, cleanup := setupChatContainer(t, map[string]string{
		"ENCRYPTION_KEY_FROM": "device",
		"ENCRYPTION_KEY":      "",
		"KEY_DEVICE_PORT":     "/dev/ttyACM9",
	})
	defer cleanup()

	client := chatsdk.NewClient(baseURL)

	live, err := client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	_, err = client.GetReadiness(t.Context())
	requireAPIError(t, err, http.StatusServiceUnavailable, "")
}
