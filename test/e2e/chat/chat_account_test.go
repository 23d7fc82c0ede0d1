package chat_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/stretchr/testify/require"
)

// TestAccountLifecycle walks a user through signup, profile, email change,
// app sessions, refresh rotation and logout.
func TestAccountLifecycle(t *testing.T) {
	baseURL, cleanup := setupChatContainer(t, nil)
	defer cleanup()

	ctx := t.Context()
	client := chatsdk.NewClient(baseURL)
	session := signupAndLogin(t, client, "alice", "alice@example.com")

	me, err := session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "alice@example.com", me.Email, "owner should see decrypted email")

	require.NoError(t, session.UpdateEmail(ctx, "alice@example.org"))
	me, err = session.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice@example.org", me.Email)

	// Refreshable app session scoped to reading the profile only.
	app, err := session.CreateAppSession(ctx, chatsdk.AppSessionRequest{
		App:     "e2e",
		Scopes:  []string{"profile:read"},
		Refresh: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, app.RefreshToken())

	appMe, err := app.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, me.ID, appMe.ID)

	_, err = app.CreatePost(ctx, "not allowed")
	requireAPIError(t, err, http.StatusForbidden, chatsdk.ErrorCodeInsufficientScope)

	first := app.RefreshToken()
	require.NoError(t, app.Refresh(ctx))
	require.NotEqual(t, first, app.RefreshToken())

	// Replaying a rotated refresh token revokes the session.
	_, err = client.Refresh(ctx, first)
	requireAPIError(t, err, http.StatusUnauthorized, "")
	_, err = app.Me(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, "")

	require.NoError(t, session.Logout(ctx))
	_, err = session.Me(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, "")
}

// TestLoginFailures verifies credential errors.
func TestLoginFailures(t *testing.T) {
	baseURL, cleanup := setupChatContainer(t, nil)
	defer cleanup()

	ctx := t.Context()
	client := chatsdk.NewClient(baseURL)
	signupAndLogin(t, client, "bob", "")

	time.Sleep(loginCooldown)
	_, err := client.Login(ctx, "bob", "wrong")
	requireAPIError(t, err, http.StatusUnauthorized, chatsdk.ErrorCodeInvalidGrant)

	// Logins inside the cooldown are refused before credentials are checked.
	_, err = client.Login(ctx, "bob", testPassword)
	requireAPIError(t, err, http.StatusTooManyRequests, chatsdk.ErrorCodeRateLimited)

	time.Sleep(loginCooldown)
	_, err = client.Login(ctx, "nobody", testPassword)
	requireAPIError(t, err, http.StatusUnauthorized, chatsdk.ErrorCodeInvalidGrant)
}

// TestSignupCooldown verifies signups from one address are spaced out.
func TestSignupCooldown(t *testing.T) {
	baseURL, cleanup := setupChatContainer(t, nil)
	defer cleanup()

	ctx := t.Context()
	client := chatsdk.NewClient(baseURL)

	_, err := client.Signup(ctx, chatsdk.SignupRequest{Username: "carol", Password: testPassword})
	require.NoError(t, err)

	_, err = client.Signup(ctx, chatsdk.SignupRequest{Username: "dave", Password: testPassword})
	requireAPIError(t, err, http.StatusTooManyRequests, chatsdk.ErrorCodeRateLimited)
}
