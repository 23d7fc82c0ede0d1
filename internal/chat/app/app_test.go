package app

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/aussiebroadwan/tabchat/pkg/envelope"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newMasterKey(t *testing.T) string {
	t.Helper()
	b := make([]byte, 32)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return base64.URLEncoding.EncodeToString(b)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		Port:                 8080,
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
		DatabaseFile:         filepath.Join(dir, "chat.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		Encryption: EncryptionConfig{
			KeyDir:       filepath.Join(dir, "keys"),
			PollInterval: time.Second,
		},
	}
}

func TestInitEnvelope(t *testing.T) {
	ctx := t.Context()

	t.Run("no provider", func(t *testing.T) {
		env, err := InitEnvelope(ctx, EncryptionConfig{KeyDir: t.TempDir()}, slogx.Discard())
		require.NoError(t, err)
		require.Nil(t, env.Provider())
		require.False(t, env.Available())
	})

	t.Run("env key", func(t *testing.T) {
		cfg := EncryptionConfig{KeyFrom: KeyFromEnv, Key: newMasterKey(t), KeyDir: t.TempDir()}
		env, err := InitEnvelope(ctx, cfg, slogx.Discard())
		require.NoError(t, err)
		require.True(t, env.Available())
	})

	t.Run("malformed env key is fatal", func(t *testing.T) {
		cfg := EncryptionConfig{KeyFrom: KeyFromEnv, Key: "c2hvcnQ=", KeyDir: t.TempDir()}
		_, err := InitEnvelope(ctx, cfg, slogx.Discard())
		require.ErrorIs(t, err, envelope.ErrMalformedKey)
	})

	t.Run("missing device waits", func(t *testing.T) {
		cfg := EncryptionConfig{
			KeyFrom:    KeyFromDevice,
			DevicePort: filepath.Join(t.TempDir(), "ttyACM0"),
			KeyDir:     t.TempDir(),
		}
		env, err := InitEnvelope(ctx, cfg, slogx.Discard())
		require.NoError(t, err)
		require.NotNil(t, env.Provider())
		require.False(t, env.Available())
	})
}

func TestApplicationServesAPI(t *testing.T) {
	cfg := testConfig(t)
	cfg.Encryption.KeyFrom = KeyFromEnv
	cfg.Encryption.Key = newMasterKey(t)

	application, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		application.gateway.Close()
		application.housekeepingService.Stop()
		_ = application.db.Close()
	})
	application.housekeepingService.Start()

	srv := httptest.NewServer(application.router)
	t.Cleanup(srv.Close)

	ctx := t.Context()
	client := chatsdk.NewClient(srv.URL)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Encryption)

	_, err = client.Signup(ctx, chatsdk.SignupRequest{
		Username: "alice",
		Password: "hunter2",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)

	session, err := client.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "alice@example.com", me.Email)
}

func TestApplicationWithoutEncryption(t *testing.T) {
	application, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		application.gateway.Close()
		_ = application.db.Close()
	})

	srv := httptest.NewServer(application.router)
	t.Cleanup(srv.Close)

	ctx := t.Context()
	client := chatsdk.NewClient(srv.URL)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "disabled", ready.Checks.Encryption)

	// emails are refused rather than stored in the clear
	_, err = client.Signup(ctx, chatsdk.SignupRequest{
		Username: "alice",
		Password: "hunter2",
		Email:    "alice@example.com",
	})
	var apiErr *chatsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	_, err = application.db.Users().GetUserByUsername(ctx, "alice")
	require.Error(t, err)
}
