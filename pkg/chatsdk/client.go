package chatsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client talks to a tabchat server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent is sent on login so sessions can be told apart.
	UserAgent string
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: "chatsdk",
	}
}

// Signup creates an account.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*Profile, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/users", "", req)
	if err != nil {
		return nil, err
	}

	var out Profile
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges a password for a user session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/sessions", "", LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	var out FoundationResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	s := newSession(c, out.Session)
	s.User = out.User
	return s, nil
}

// Refresh rotates an app refresh token. The response carries the new
// refresh token but no access token, which rotation leaves unchanged.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*SessionInfo, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/sessions/refresh", "", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var out SessionInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewSessionFromToken wraps an access token obtained elsewhere.
func (c *Client) NewSessionFromToken(token string) *Session {
	return newSession(c, SessionInfo{Token: token})
}
