package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/cryptox"
	"github.com/aussiebroadwan/tabchat/pkg/idx"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

// BearerKinds are the kinds accepted as general API credentials.
var BearerKinds = []domain.SessionKind{domain.KindUser, domain.KindAppRefresh}

// SessionService issues and resolves sessions. Raw token values leave the
// service only from Create, Foundation and RotateRefresh; storage holds
// fingerprints.
type SessionService struct {
	Store store.Store
	Clock clock.Clock
}

type CreateParams struct {
	Kind      domain.SessionKind
	UserID    string
	Token     string // generated when empty
	UserAgent string

	// Expires overrides the kind's default lifetime.
	Expires *time.Duration

	Action *string // kind 0
	Email  *string // kind 0
	App    *string // kinds 4, 5
	Scopes []string
}

func (s *SessionService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// Create builds a session for p.Kind, nulling every field that does not
// belong to it, and persists it.
func (s *SessionService) Create(ctx context.Context, p CreateParams) (domain.Session, error) {
	sess, err := s.build(p)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.Session{}, unavailable(err)
	}
	return sess, nil
}

func (s *SessionService) build(p CreateParams) (domain.Session, error) {
	if !p.Kind.Valid() {
		return domain.Session{}, ErrInvalidKind
	}
	if p.UserID == "" {
		return domain.Session{}, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}

	now := s.now()
	token := p.Token
	if token == "" {
		var err error
		if token, err = cryptox.GenerateToken(tokenSize(p.Kind)); err != nil {
			return domain.Session{}, err
		}
	}

	lifetime := domain.DefaultTTL(p.Kind)
	if p.Expires != nil {
		if *p.Expires <= 0 {
			return domain.Session{}, fmt.Errorf("%w: non-positive expiry", ErrInvalidInput)
		}
		lifetime = *p.Expires
	}
	expires := now.Add(lifetime)

	sess := domain.Session{
		ID:        idx.NewAt(now).String(),
		Kind:      p.Kind,
		UserID:    p.UserID,
		Token:     token,
		TokenHash: cryptox.FingerprintToken(token),
		UserAgent: p.UserAgent,
		Expires:   &expires,
		Lifetime:  lifetime,
		Created:   now,
	}

	switch p.Kind {
	case domain.KindEmailAction:
		sess.Action = p.Action
		sess.Email = p.Email
	case domain.KindEmailVerify:
		verified := false
		sess.Verified = &verified
	case domain.KindApp, domain.KindAppRefresh:
		app := ""
		if p.App != nil {
			app = *p.App
		}
		sess.App = &app
		sess.Scopes = append([]string{}, p.Scopes...)
	}

	if p.Kind == domain.KindAppRefresh {
		refresh, err := cryptox.GenerateToken(cryptox.TokenSize1K)
		if err != nil {
			return domain.Session{}, err
		}
		refreshExpires := now.Add(domain.RefreshTTL)
		sess.RefreshToken = refresh
		sess.RefreshHash = cryptox.FingerprintToken(refresh)
		sess.RefreshExpires = &refreshExpires
		sess.PreviousRefreshHashes = []string{}
	}
	return sess, nil
}

func tokenSize(k domain.SessionKind) int {
	switch k {
	case domain.KindUser:
		return cryptox.TokenSize512
	case domain.KindApp, domain.KindAppRefresh:
		return cryptox.TokenSize768
	}
	return cryptox.TokenSize256
}

// Validate resolves a bearer token for general API access.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.AuthContext, error) {
	return s.Resolve(ctx, token, BearerKinds...)
}

// Resolve looks a token up and accepts it when it exists, has one of kinds
// and has not expired. Absent, expired or malformed sessions resolve to an
// unauthenticated context with a nil error; only store failures error.
func (s *SessionService) Resolve(ctx context.Context, token string, kinds ...domain.SessionKind) (domain.AuthContext, error) {
	if token == "" {
		return domain.AuthContext{}, nil
	}

	sess, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AuthContext{}, nil
		}
		return domain.AuthContext{}, unavailable(err)
	}

	if err := sess.Validate(); err != nil {
		slogx.FromContext(ctx).Warn("ignoring malformed session",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
		return domain.AuthContext{}, nil
	}
	if !slices.Contains(kinds, sess.Kind) || sess.Expired(s.now()) {
		return domain.AuthContext{}, nil
	}
	return domain.AuthContext{Session: sess, Authenticated: true}, nil
}

// Renew pushes expiry out to now plus the session's lifetime. Expiry never
// moves backwards and a legacy null expiry stays null.
func (s *SessionService) Renew(ctx context.Context, sess domain.Session) (domain.Session, error) {
	lifetime := sess.Lifetime
	if lifetime <= 0 {
		lifetime = domain.DefaultTTL(sess.Kind)
	}

	expires, err := s.Store.Sessions().ExtendSession(ctx, sess.ID, s.now().Add(lifetime))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, ErrUnauthenticated
		}
		return domain.Session{}, unavailable(err)
	}
	sess.Expires = expires
	return sess, nil
}

// Revoke deletes the session. Revoking an absent session is not an error.
func (s *SessionService) Revoke(ctx context.Context, sess domain.Session) error {
	if err := s.Store.Sessions().DeleteSession(ctx, sess.ID); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.Store.Sessions().DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Foundation issues a primary user session. A pending account deletion is
// cancelled in the same transaction.
func (s *SessionService) Foundation(ctx context.Context, userID, userAgent string) (domain.Foundation, error) {
	sess, err := s.build(CreateParams{Kind: domain.KindUser, UserID: userID, UserAgent: userAgent})
	if err != nil {
		return domain.Foundation{}, err
	}

	var user domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownUser
			}
			return err
		}

		if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
			return err
		}

		if user.DeleteAfter != nil {
			if err := tx.Users().SetDeleteAfter(ctx, userID, nil); err != nil {
				return err
			}
			user.DeleteAfter = nil
			slogx.FromContext(ctx).Info("pending account deletion cancelled by login",
				slog.String("user_id", userID))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			return domain.Foundation{}, err
		}
		return domain.Foundation{}, unavailable(err)
	}

	return domain.Foundation{
		Session:      sess.WithoutHistory(),
		User:         user.Profile(),
		RequiresTOTP: false,
	}, nil
}

// RotateRefresh exchanges a kind 5 refresh token for a new one and extends
// the access expiry. Presenting a token that was already rotated away
// revokes the whole session.
func (s *SessionService) RotateRefresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	if refreshToken == "" {
		return domain.Session{}, ErrInvalidRefresh
	}
	l := slogx.FromContext(ctx)
	now := s.now()
	hash := cryptox.FingerprintToken(refreshToken)

	sess, err := s.Store.Sessions().GetSessionByRefreshHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, s.checkReuse(ctx, hash)
	}
	if err != nil {
		return domain.Session{}, unavailable(err)
	}

	if sess.Kind != domain.KindAppRefresh || sess.RefreshExpired(now) {
		return domain.Session{}, ErrInvalidRefresh
	}

	next, err := cryptox.GenerateToken(cryptox.TokenSize1K)
	if err != nil {
		return domain.Session{}, err
	}
	nextHash := cryptox.FingerprintToken(next)

	lifetime := sess.Lifetime
	if lifetime <= 0 {
		lifetime = domain.DefaultTTL(sess.Kind)
	}
	refreshExpires := now.Add(domain.RefreshTTL)
	expires := now.Add(lifetime)

	err = s.Store.Sessions().RotateRefresh(ctx, sess.ID, hash, nextHash, refreshExpires, expires)
	if errors.Is(err, store.ErrNotFound) {
		// a concurrent rotation consumed the token first
		l.Info("refresh rotation lost race", slog.String("session_id", sess.ID))
		return domain.Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return domain.Session{}, unavailable(err)
	}

	if sess.Expires == nil || expires.After(*sess.Expires) {
		sess.Expires = &expires
	}
	sess.PreviousRefreshHashes = append(sess.PreviousRefreshHashes, hash)
	sess.RefreshToken = next
	sess.RefreshHash = nextHash
	sess.RefreshExpires = &refreshExpires
	return sess.WithoutHistory(), nil
}

func (s *SessionService) checkReuse(ctx context.Context, hash string) error {
	reused, err := s.Store.Sessions().FindSessionByPreviousRefresh(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidRefresh
	}
	if err != nil {
		return unavailable(err)
	}

	slogx.FromContext(ctx).Warn("refresh token reuse detected, revoking session",
		slog.String("session_id", reused.ID),
		slog.String("user_id", reused.UserID))
	if err := s.Revoke(ctx, reused); err != nil {
		return err
	}
	return ErrRefreshReused
}
