package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENCRYPTION_KEY_FROM", "")
	t.Setenv("GATEWAY_DISABLED_COMMANDS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 10*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Equal(t, "chat.db", cfg.DatabaseFile)
	require.Equal(t, "pepper", cfg.PepperFile)

	require.Empty(t, cfg.Encryption.KeyFrom)
	require.Equal(t, "keys", cfg.Encryption.KeyDir)
	require.Equal(t, 9600, cfg.Encryption.DeviceBaud)
	require.Equal(t, 5*time.Second, cfg.Encryption.PollInterval)

	require.Equal(t, 1000, cfg.Gateway.MaxFrameBytes)
	require.Equal(t, 64, cfg.Gateway.SendQueue)
	require.Equal(t, []string{"gmsg", "gvar"}, cfg.Gateway.Disabled)
	require.Empty(t, cfg.AllowedOrigins)
	require.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "3s")
	t.Setenv("CHAT_DATABASE_FILE", "/data/chat.db")
	t.Setenv("ENCRYPTION_KEY_FROM", "device")
	t.Setenv("KEY_DEVICE_PORT", "/dev/ttyUSB0")
	t.Setenv("KEY_DEVICE_BAUD", "115200")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("GATEWAY_MAX_FRAME_BYTES", "4096")
	t.Setenv("GATEWAY_DISABLED_COMMANDS", "gvar; ")
	t.Setenv("GATEWAY_ALLOWED_ORIGINS", "https://chat.example;https://m.chat.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 3*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, "/data/chat.db", cfg.DatabaseFile)
	require.Equal(t, KeyFromDevice, cfg.Encryption.KeyFrom)
	require.Equal(t, "/dev/ttyUSB0", cfg.Encryption.DevicePort)
	require.Equal(t, 115200, cfg.Encryption.DeviceBaud)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, 4096, cfg.Gateway.MaxFrameBytes)
	require.Equal(t, []string{"gvar"}, cfg.Gateway.Disabled)
	require.Equal(t, []string{"https://chat.example", "https://m.chat.example"}, cfg.AllowedOrigins)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Run("unknown key source", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY_FROM", "vault")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "ENCRYPTION_KEY_FROM")
	})

	t.Run("env source without key", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY_FROM", "env")
		t.Setenv("ENCRYPTION_KEY", "")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "ENCRYPTION_KEY")
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY_FROM", "")
		t.Setenv("PORT", "70000")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "PORT")
	})

	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY_FROM", "")
		t.Setenv("HOUSEKEEPING_INTERVAL", "soon")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
