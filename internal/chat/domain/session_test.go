package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDefaultTTL(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionKind]time.Duration{
		domain.KindEmailAction:   300 * time.Second,
		domain.KindEmailVerify:   300 * time.Second,
		domain.KindPasswordReset: 300 * time.Second,
		domain.KindUser:          31556952 * time.Second,
		domain.KindApp:           1800 * time.Second,
		domain.KindAppRefresh:    1800 * time.Second,
	}
	for kind, want := range cases {
		require.Equal(t, want, domain.DefaultTTL(kind), kind.String())
	}
	require.Zero(t, domain.DefaultTTL(domain.SessionKind(9)))
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	base := domain.Session{ID: "s1", UserID: "u1", TokenHash: "h"}

	t.Run("plain user session", func(t *testing.T) {
		s := base
		s.Kind = domain.KindUser
		require.NoError(t, s.Validate())
	})

	t.Run("scopes outside app kinds", func(t *testing.T) {
		s := base
		s.Kind = domain.KindUser
		s.Scopes = []string{"posts:write"}
		require.ErrorIs(t, s.Validate(), domain.ErrMalformedSession)
	})

	t.Run("verified only on kind 1", func(t *testing.T) {
		s := base
		s.Kind = domain.KindEmailVerify
		s.Verified = ptr(false)
		require.NoError(t, s.Validate())

		s.Kind = domain.KindEmailAction
		require.ErrorIs(t, s.Validate(), domain.ErrMalformedSession)
	})

	t.Run("kind 5 requires refresh token", func(t *testing.T) {
		s := base
		s.Kind = domain.KindAppRefresh
		s.App = ptr("bot")
		require.ErrorIs(t, s.Validate(), domain.ErrMalformedSession)

		s.RefreshHash = "r"
		s.RefreshExpires = ptr(time.Now().Add(time.Hour))
		require.NoError(t, s.Validate())
	})

	t.Run("refresh fields outside kind 5", func(t *testing.T) {
		s := base
		s.Kind = domain.KindApp
		s.RefreshHash = "r"
		require.ErrorIs(t, s.Validate(), domain.ErrMalformedSession)
	})

	t.Run("unknown kind", func(t *testing.T) {
		s := base
		s.Kind = domain.SessionKind(7)
		require.ErrorIs(t, s.Validate(), domain.ErrMalformedSession)
	})
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	s := domain.Session{}
	require.False(t, s.Expired(now), "null expiry never expires")

	s.Expires = ptr(now)
	require.True(t, s.Expired(now))

	s.Expires = ptr(now.Add(time.Second))
	require.False(t, s.Expired(now))
}

func TestUserPresence(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	u := domain.User{Status: domain.StatusAway}

	require.Equal(t, "Away", u.Presence(true, now))
	require.Equal(t, "Offline", u.Presence(false, now))

	// unknown preferences fall back to Online while connected
	u.Status = 9
	require.Equal(t, "Online", u.Presence(true, now))
	require.Equal(t, "Offline", u.Presence(false, now))
	require.Equal(t, "Online", domain.User{Status: -1}.Presence(true, now))

	u.SuspendedUntil = ptr(now.Add(time.Minute))
	require.Equal(t, "Suspended", u.Presence(true, now))

	u.Banned = true
	require.Equal(t, "Banned", u.Presence(true, now))

	u.Banned = false
	u.SuspendedUntil = ptr(now)
	require.False(t, u.Suspended(now))
}
