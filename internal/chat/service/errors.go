package service

import (
	"errors"
	"fmt"
)

// Denials. Variants wrap their class so errors.Is(err, ErrForbidden) holds
// for a scope denial.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrScopeDenied     = fmt.Errorf("%w: scope not granted", ErrForbidden)
	ErrNotVerified     = fmt.Errorf("%w: not verified", ErrUnauthenticated)
	ErrSuspended       = fmt.Errorf("%w: account suspended", ErrForbidden)
	ErrRateLimited     = errors.New("rate_limited")

	// ErrStoreUnavailable marks a failed store round trip. Callers retry
	// rather than treat the user as logged out.
	ErrStoreUnavailable = errors.New("store_unavailable")
)

var (
	ErrInvalidKind        = errors.New("invalid_session_kind")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrRefreshReused      = errors.New("refresh_token_reused")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnknownUser        = errors.New("unknown_user")
	ErrBanned             = errors.New("account_banned")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrInvalidInput       = errors.New("invalid_input")
	ErrPostNotFound       = errors.New("post_not_found")
)

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
