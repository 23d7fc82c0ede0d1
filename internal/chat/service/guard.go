package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/ratelimit"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

// Policy describes what an operation accepts.
type Policy struct {
	Kinds []domain.SessionKind

	// Levels defaults to domain.AllLevels.
	Levels []int

	// Scope is only checked for kind 5 sessions. A kind 5 session is
	// refused outright by a policy that names no scope.
	Scope string

	CheckSuspension bool

	// RateCategory, when set, applies a per-user cooldown of RateWindow.
	RateCategory string
	RateWindow   time.Duration
}

// Principal is an authorized caller.
type Principal struct {
	Session domain.Session
	User    domain.User
}

// Guard gates privileged operations for both the HTTP layer and the gateway.
type Guard struct {
	Sessions *SessionService
	Store    store.Store
	Limiter  ratelimit.Limiter
	Clock    clock.Clock
}

func (g *Guard) now() time.Time {
	if g.Clock == nil {
		return time.Now()
	}
	return g.Clock.Now()
}

// Check evaluates p against ac, stopping at the first failing step. A nil
// error means the caller may proceed. The session is revoked when its user
// is gone or banned.
func (g *Guard) Check(ctx context.Context, ac domain.AuthContext, p Policy) (domain.User, error) {
	if !ac.Authenticated {
		return domain.User{}, ErrUnauthenticated
	}
	sess := ac.Session

	if !slices.Contains(p.Kinds, sess.Kind) {
		return domain.User{}, ErrForbidden
	}
	if sess.Kind == domain.KindAppRefresh && (p.Scope == "" || !sess.HasScope(p.Scope)) {
		return domain.User{}, ErrScopeDenied
	}
	if sess.Verified != nil && !*sess.Verified {
		return domain.User{}, ErrNotVerified
	}

	user, err := g.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, unavailable(err)
	}
	if err != nil || user.Deleted || user.Banned {
		if rerr := g.Sessions.Revoke(ctx, sess); rerr != nil {
			slogx.FromContext(ctx).Warn("failed to revoke orphaned session",
				slog.String("session_id", sess.ID),
				slog.String("error", rerr.Error()))
		}
		return domain.User{}, ErrUnauthenticated
	}

	levels := p.Levels
	if levels == nil {
		levels = domain.AllLevels
	}
	if !slices.Contains(levels, user.Level) {
		return domain.User{}, ErrForbidden
	}

	if p.CheckSuspension && user.Suspended(g.now()) {
		return domain.User{}, ErrSuspended
	}
	return user, nil
}

// Authorize resolves token and runs Check. Kinds beyond the bearer kinds are
// resolved only when the policy names them.
func (g *Guard) Authorize(ctx context.Context, token string, p Policy) (Principal, error) {
	kinds := slices.Clone(BearerKinds)
	for _, k := range p.Kinds {
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}

	ac, err := g.Sessions.Resolve(ctx, token, kinds...)
	if err != nil {
		return Principal{}, err
	}

	user, err := g.Check(ctx, ac, p)
	if err != nil {
		return Principal{}, err
	}

	if p.RateCategory != "" && g.Limiter != nil {
		blocked, err := g.Limiter.Check(ctx, p.RateCategory, user.ID, p.RateWindow)
		if err != nil {
			slogx.FromContext(ctx).Warn("rate limiter unavailable, allowing request",
				slog.String("category", p.RateCategory),
				slog.String("error", err.Error()))
		} else if blocked {
			return Principal{}, ErrRateLimited
		}
	}

	return Principal{Session: ac.Session, User: user}, nil
}
