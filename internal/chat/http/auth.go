package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tabchat/internal/chat/service"
	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/aussiebroadwan/tabchat/pkg/envelope"
	"github.com/aussiebroadwan/tabchat/pkg/httpx"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

type principalKey struct{}

// guardAuthenticator runs the guard for one route's policy.
type guardAuthenticator struct {
	guard  *service.Guard
	policy service.Policy
}

func (a guardAuthenticator) Authenticate(ctx context.Context, token string) (context.Context, error) {
	p, err := a.guard.Authorize(ctx, token, a.policy)
	if err != nil {
		return ctx, err
	}

	ctx = context.WithValue(ctx, principalKey{}, p)
	ctx = httpx.WithUserID(ctx, p.User.ID)
	ctx = httpx.WithScopes(ctx, p.Session.Scopes)
	ctx = slogx.With(ctx, "user_id", p.User.ID, "session_id", p.Session.ID)
	return ctx, nil
}

// principalFrom returns the caller stored by guardAuthenticator. Handlers
// are only mounted behind it, so a missing principal is a wiring bug.
func principalFrom(ctx context.Context) service.Principal {
	p, ok := ctx.Value(principalKey{}).(service.Principal)
	if !ok {
		panic("http: handler mounted without guard")
	}
	return p
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrUnauthenticated) {
		httpx.WriteBearerError(w, http.StatusUnauthorized, chatsdk.ErrorCodeInvalidToken,
			"the session token is missing, invalid or expired")
		return
	}
	writeServiceError(w, r, err, "authorization failed")
}

// writeServiceError maps service and envelope failures onto status codes.
// Anything unrecognized is logged and reported as a 500 with desc.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, desc string) {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		w.Header().Set("Retry-After", "1")
		httpx.WriteError(w, http.StatusTooManyRequests, chatsdk.ErrorCodeRateLimited, "Slow down. Please try again shortly.")
	case errors.Is(err, service.ErrStoreUnavailable),
		errors.Is(err, envelope.ErrUnavailable),
		errors.Is(err, envelope.ErrNotConfigured):
		slogx.FromContext(r.Context()).Warn("dependency unavailable", "error", err)
		w.Header().Set("Retry-After", "5")
		httpx.WriteError(w, http.StatusServiceUnavailable, chatsdk.ErrorCodeTemporarilyUnavail, "A dependency is unavailable. Please retry.")
	case errors.Is(err, service.ErrScopeDenied):
		httpx.WriteBearerError(w, http.StatusForbidden, chatsdk.ErrorCodeInsufficientScope, "the session does not have the required scope")
	case errors.Is(err, service.ErrSuspended):
		httpx.WriteError(w, http.StatusForbidden, chatsdk.ErrorCodeAccountSuspended, "the account is suspended")
	case errors.Is(err, service.ErrBanned):
		httpx.WriteError(w, http.StatusForbidden, chatsdk.ErrorCodeAccountBanned, "the account is banned")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, chatsdk.ErrorCodeAccessDenied, "access denied")
	case errors.Is(err, service.ErrUnauthenticated):
		httpx.WriteBearerError(w, http.StatusUnauthorized, chatsdk.ErrorCodeInvalidToken, "the session token is missing, invalid or expired")
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnknownUser):
		httpx.WriteError(w, http.StatusUnauthorized, chatsdk.ErrorCodeInvalidGrant, "invalid username or password")
	case errors.Is(err, service.ErrInvalidRefresh), errors.Is(err, service.ErrRefreshReused):
		httpx.WriteError(w, http.StatusUnauthorized, chatsdk.ErrorCodeInvalidGrant, "the refresh token is invalid or expired")
	case errors.Is(err, service.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict, chatsdk.ErrorCodeUsernameTaken, "username is already taken")
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidKind):
		httpx.WriteError(w, http.StatusBadRequest, chatsdk.ErrorCodeInvalidRequest, err.Error())
	default:
		slogx.FromContext(r.Context()).Error(desc, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, chatsdk.ErrorCodeServerError, desc)
	}
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, chatsdk.ErrorCodeInvalidRequest, desc)
}
