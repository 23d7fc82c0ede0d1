package chatsdk

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// Session makes requests with a bearer token.
type Session struct {
	client *Client

	// User is set for sessions created by Login.
	User Profile

	mu   sync.RWMutex
	info SessionInfo
}

func newSession(c *Client, info SessionInfo) *Session {
	return &Session{client: c, info: info}
}

// Info returns the session as last reported by the server.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Token
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.RefreshToken
}

// Refresh rotates the session's refresh token and keeps the access token.
// The previous refresh token is spent; presenting it again revokes the
// session server side.
func (s *Session) Refresh(ctx context.Context) error {
	info, err := s.client.Refresh(ctx, s.RefreshToken())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.RefreshToken = info.RefreshToken
	s.info.RefreshExpires = info.RefreshExpires
	s.info.Expires = info.Expires
	return nil
}

// Me returns the caller's profile including the decrypted email.
func (s *Session) Me(ctx context.Context) (*Profile, error) {
	resp, err := s.client.do(ctx, http.MethodGet, "/v1/me", s.Token(), nil)
	if err != nil {
		return nil, err
	}

	var out Profile
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) UpdateEmail(ctx context.Context, email string) error {
	resp, err := s.client.do(ctx, http.MethodPut, "/v1/me/email", s.Token(), UpdateEmailRequest{Email: email})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// ScheduleDeletion marks the account for deletion. Logging in again before
// the returned time cancels it.
func (s *Session) ScheduleDeletion(ctx context.Context) (*DeletionResponse, error) {
	resp, err := s.client.do(ctx, http.MethodPost, "/v1/me/delete", s.Token(), nil)
	if err != nil {
		return nil, err
	}

	var out DeletionResponse
	if err := decodeJSON(resp, &out, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) CreatePost(ctx context.Context, content string) (*Post, error) {
	resp, err := s.client.do(ctx, http.MethodPost, "/v1/home", s.Token(), CreatePostRequest{Content: content})
	if err != nil {
		return nil, err
	}

	var out Post
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Renew extends the session's expiry and records the new value.
func (s *Session) Renew(ctx context.Context) (*SessionInfo, error) {
	resp, err := s.client.do(ctx, http.MethodPost, "/v1/sessions/renew", s.Token(), nil)
	if err != nil {
		return nil, err
	}

	var out SessionInfo
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.info.Expires = out.Expires
	s.mu.Unlock()
	return &out, nil
}

// Logout revokes the session on the server.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.client.do(ctx, http.MethodDelete, "/v1/sessions/current", s.Token(), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// CreateAppSession mints an app session owned by this user.
func (s *Session) CreateAppSession(ctx context.Context, req AppSessionRequest) (*Session, error) {
	resp, err := s.client.do(ctx, http.MethodPost, "/v1/sessions/app", s.Token(), req)
	if err != nil {
		return nil, err
	}

	var out SessionInfo
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return newSession(s.client, out), nil
}

// BanUser bans a user. The caller must be a moderator or admin.
func (s *Session) BanUser(ctx context.Context, userID string) (*BanResponse, error) {
	resp, err := s.client.do(ctx, http.MethodPost, "/v1/admin/users/"+url.PathEscape(userID)+"/ban", s.Token(), nil)
	if err != nil {
		return nil, err
	}

	var out BanResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
