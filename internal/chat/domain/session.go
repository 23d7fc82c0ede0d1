package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrMalformedSession is returned when a stored session carries fields that
// do not belong to its kind.
var ErrMalformedSession = errors.New("domain: malformed session")

// SessionKind enumerates the credentials the authority issues. The numeric
// values are persisted and must not change.
type SessionKind int

const (
	KindEmailAction   SessionKind = 0 // pending email action
	KindEmailVerify   SessionKind = 1 // pending email verification
	KindPasswordReset SessionKind = 2 // password reset in progress
	KindUser          SessionKind = 3 // standard user session
	KindApp           SessionKind = 4 // app session, no refresh
	KindAppRefresh    SessionKind = 5 // app session with refresh token
)

const (
	// Year is the TTL used for long lived credentials (365.2425 days).
	Year = 31556952 * time.Second

	pendingTTL = 300 * time.Second
	appTTL     = 1800 * time.Second
)

func (k SessionKind) Valid() bool { return k >= KindEmailAction && k <= KindAppRefresh }

func (k SessionKind) String() string {
	switch k {
	case KindEmailAction:
		return "email_action"
	case KindEmailVerify:
		return "email_verify"
	case KindPasswordReset:
		return "password_reset"
	case KindUser:
		return "user"
	case KindApp:
		return "app"
	case KindAppRefresh:
		return "app_refresh"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DefaultTTL returns the access lifetime applied when no explicit expiry is
// requested. Unknown kinds get zero.
func DefaultTTL(k SessionKind) time.Duration {
	switch k {
	case KindEmailAction, KindEmailVerify, KindPasswordReset:
		return pendingTTL
	case KindUser:
		return Year
	case KindApp, KindAppRefresh:
		return appTTL
	}
	return 0
}

// RefreshTTL is the lifetime of a kind 5 refresh token.
const RefreshTTL = Year

// Session is a stored credential. Token and RefreshToken hold raw values only
// on the copy returned from creation or rotation; storage keeps fingerprints.
type Session struct {
	ID        string        `json:"_id"`
	Kind      SessionKind   `json:"type"`
	UserID    string        `json:"user"`
	Token     string        `json:"token,omitempty"`
	TokenHash string        `json:"-"`
	UserAgent string        `json:"user_agent,omitempty"`
	Expires   *time.Time    `json:"expires"`
	Lifetime  time.Duration `json:"-"`
	Created   time.Time     `json:"created"`

	// kind 0
	Action *string `json:"action"`
	Email  *string `json:"email"`

	// kind 1
	Verified *bool `json:"verified"`

	// kinds 4 and 5
	App    *string  `json:"app"`
	Scopes []string `json:"scopes"`

	// kind 5
	RefreshToken          string     `json:"refresh_token,omitempty"`
	RefreshHash           string     `json:"-"`
	RefreshExpires        *time.Time `json:"refresh_expires"`
	PreviousRefreshHashes []string   `json:"previous_refresh_tokens,omitempty"`
}

// Validate reports whether the kind specific fields are consistent with Kind.
func (s Session) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedSession, int(s.Kind))
	}
	if s.ID == "" || s.UserID == "" || s.TokenHash == "" {
		return fmt.Errorf("%w: missing identity", ErrMalformedSession)
	}

	isAction := s.Kind == KindEmailAction
	if (s.Action != nil || s.Email != nil) && !isAction {
		return fmt.Errorf("%w: action fields on %s", ErrMalformedSession, s.Kind)
	}
	if s.Verified != nil && s.Kind != KindEmailVerify {
		return fmt.Errorf("%w: verified on %s", ErrMalformedSession, s.Kind)
	}

	isApp := s.Kind == KindApp || s.Kind == KindAppRefresh
	if (s.App != nil || s.Scopes != nil) && !isApp {
		return fmt.Errorf("%w: app fields on %s", ErrMalformedSession, s.Kind)
	}

	hasRefresh := s.RefreshHash != "" || s.RefreshExpires != nil || s.PreviousRefreshHashes != nil
	if s.Kind == KindAppRefresh {
		if s.RefreshHash == "" || s.RefreshExpires == nil {
			return fmt.Errorf("%w: kind 5 without refresh token", ErrMalformedSession)
		}
	} else if hasRefresh {
		return fmt.Errorf("%w: refresh fields on %s", ErrMalformedSession, s.Kind)
	}
	return nil
}

// Expired reports whether a non-null expiry is at or before now.
func (s Session) Expired(now time.Time) bool {
	return s.Expires != nil && !s.Expires.After(now)
}

// RefreshExpired reports whether the refresh window has closed.
func (s Session) RefreshExpired(now time.Time) bool {
	return s.RefreshExpires == nil || !s.RefreshExpires.After(now)
}

func (s Session) HasScope(scope string) bool {
	return slices.Contains(s.Scopes, scope)
}

// WithoutHistory returns a copy with the refresh history removed.
func (s Session) WithoutHistory() Session {
	s.PreviousRefreshHashes = nil
	return s
}
