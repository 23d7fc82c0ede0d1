package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.Users.Signup(ctx, "alice", "pw", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, u.EmailKeyID)
	require.NotContains(t, u.EmailCiphertext, "alice@example.com")

	_, err = f.Users.Signup(ctx, "Alice", "pw", "")
	require.ErrorIs(t, err, service.ErrUsernameTaken)

	for _, name := range []string{"", " padded", strings.Repeat("x", service.MaxUsernameLength+1)} {
		_, err := f.Users.Signup(ctx, name, "pw", "")
		require.ErrorIs(t, err, service.ErrInvalidInput, name)
	}

	_, err = f.Users.Signup(ctx, "nopw", "", "")
	require.ErrorIs(t, err, service.ErrInvalidInput)

	t.Run("encryption unavailable refuses to store plaintext", func(t *testing.T) {
		f.Envelope.Invalidate()
		t.Cleanup(func() { require.NoError(t, f.Envelope.Load(ctx)) })

		_, err := f.Users.Signup(ctx, "bob", "pw", "bob@example.com")
		require.Error(t, err)
		_, err = f.Store.Users().GetUserByUsername(ctx, "bob")
		require.Error(t, err)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "carol")

	fd, err := f.Users.Login(ctx, "carol", "hunter2", "ua")
	require.NoError(t, err)
	require.Equal(t, u.ID, fd.User.ID)

	_, err = f.Users.Login(ctx, "carol", "wrong", "ua")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = f.Users.Login(ctx, "nobody", "hunter2", "ua")
	require.ErrorIs(t, err, service.ErrUnknownUser)

	require.NoError(t, f.Store.Users().SetBanned(ctx, u.ID, true))
	_, err = f.Users.Login(ctx, "carol", "hunter2", "ua")
	require.ErrorIs(t, err, service.ErrBanned)
}

func TestProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	owner, err := f.Users.Signup(ctx, "dora", "pw", "dora@example.com")
	require.NoError(t, err)
	other := f.signup(t, "eve")

	t.Run("presence", func(t *testing.T) {
		p, err := f.Users.Profile(ctx, "dora", other.ID)
		require.NoError(t, err)
		require.Equal(t, "Offline", p.Status)

		f.Presence.mu.Lock()
		f.Presence.online[owner.ID] = true
		f.Presence.mu.Unlock()

		p, err = f.Users.Profile(ctx, "dora", other.ID)
		require.NoError(t, err)
		require.Equal(t, "Online", p.Status)
		require.Empty(t, p.Email, "email is only shown to its owner")
	})

	t.Run("owner sees decrypted email", func(t *testing.T) {
		p, err := f.Users.Profile(ctx, "dora", owner.ID)
		require.NoError(t, err)
		require.Equal(t, "dora@example.com", p.Email)
	})

	t.Run("encryption unavailable omits email", func(t *testing.T) {
		f.Envelope.Invalidate()
		defer func() { require.NoError(t, f.Envelope.Load(ctx)) }()

		p, err := f.Users.Profile(ctx, "dora", owner.ID)
		require.NoError(t, err)
		require.Empty(t, p.Email)
		require.Equal(t, "dora", p.Username)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.Users.Profile(ctx, "ghost", owner.ID)
		require.ErrorIs(t, err, service.ErrUnknownUser)
	})

	t.Run("update email", func(t *testing.T) {
		require.NoError(t, f.Users.UpdateEmail(ctx, owner.ID, "new@example.com"))
		p, err := f.Users.Profile(ctx, "dora", owner.ID)
		require.NoError(t, err)
		require.Equal(t, "new@example.com", p.Email)

		require.ErrorIs(t, f.Users.UpdateEmail(ctx, owner.ID, "not-an-email"), service.ErrInvalidInput)
	})
}

func TestBan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "mallory")

	for range 2 {
		_, err := f.Sessions.Create(ctx, service.CreateParams{Kind: domain.KindUser, UserID: u.ID})
		require.NoError(t, err)
	}

	n, err := f.Users.Ban(ctx, u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.Equal(t, []string{u.ID}, f.Presence.kicked)

	stored, err := f.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, stored.Banned)

	_, err = f.Users.Ban(ctx, "missing")
	require.ErrorIs(t, err, service.ErrUnknownUser)
}

func TestScheduleDeletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	u := f.signup(t, "leaver")

	at, err := f.Users.ScheduleDeletion(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, f.Clock.Now().Add(service.DeletionDelay).Equal(at))

	stored, err := f.Store.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeleteAfter)
}
