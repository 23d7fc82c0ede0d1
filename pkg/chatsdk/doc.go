/*
Package chatsdk is a client for the tabchat HTTP API.

# Client vs Session

  - Client: unauthenticated operations (signup, login, refresh, health)
  - Session: operations made with a bearer token

	client := chatsdk.NewClient("https://chat.example.com")

	if _, err := client.Signup(ctx, chatsdk.SignupRequest{Username: "alice", Password: pw}); err != nil {
		return err
	}

	session, err := client.Login(ctx, "alice", pw)
	if err != nil {
		return err
	}

	me, err := session.Me(ctx)

App sessions are minted from a user session and carry scopes. Refreshable
app sessions rotate their refresh token on every use:

	app, err := session.CreateAppSession(ctx, chatsdk.AppSessionRequest{
		App:     "bot",
		Scopes:  []string{"posts:write"},
		Refresh: true,
	})

	err = app.Refresh(ctx)

# Errors

Non-2xx responses are returned as *APIError carrying the status code and the
{error, error_description} body:

	var apiErr *chatsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == chatsdk.ErrorCodeRateLimited {
		// back off
	}
*/
package chatsdk
