package chatsdk

import "time"

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// HealthResponse is returned by /livez and /readyz. Checks is only set by
// /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each readiness dependency.
type HealthChecks struct {
	Database   string `json:"database"`
	Encryption string `json:"encryption"`
}

// ============================================================================
// Requests
// ============================================================================

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AppSessionRequest mints an app session. Refresh selects a refreshable
// session with a rotating refresh token.
type AppSessionRequest struct {
	App     string   `json:"app"`
	Scopes  []string `json:"scopes"`
	Refresh bool     `json:"refresh"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateEmailRequest struct {
	Email string `json:"email"`
}

type CreatePostRequest struct {
	Content string `json:"content"`
}

// ============================================================================
// Responses
// ============================================================================

// SessionInfo is a session as returned by the API. Token and RefreshToken
// are only present on creation and rotation.
type SessionInfo struct {
	ID             string     `json:"_id"`
	Kind           int        `json:"type"`
	UserID         string     `json:"user"`
	Token          string     `json:"token,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	Expires        *time.Time `json:"expires"`
	Created        time.Time  `json:"created"`
	App            *string    `json:"app"`
	Scopes         []string   `json:"scopes"`
	RefreshToken   string     `json:"refresh_token,omitempty"`
	RefreshExpires *time.Time `json:"refresh_expires"`
}

type Profile struct {
	ID          string     `json:"_id"`
	Username    string     `json:"username"`
	Level       int        `json:"lvl"`
	Quote       string     `json:"quote"`
	Status      string     `json:"status,omitempty"`
	Email       string     `json:"email,omitempty"`
	DeleteAfter *time.Time `json:"delete_after,omitempty"`
	Created     time.Time  `json:"created"`
}

// FoundationResponse is returned by a successful login.
type FoundationResponse struct {
	Session      SessionInfo `json:"session"`
	User         Profile     `json:"user"`
	RequiresTOTP bool        `json:"requiresTotp"`
}

type DeletionResponse struct {
	DeleteAfter time.Time `json:"delete_after"`
}

type Post struct {
	ID      string    `json:"_id"`
	Author  string    `json:"u"`
	Content string    `json:"p"`
	Created time.Time `json:"created"`
}

type BanResponse struct {
	UserID          string `json:"user_id"`
	SessionsRevoked int64  `json:"sessions_revoked"`
}
