package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/pkg/clock"
	"github.com/aussiebroadwan/tabchat/pkg/cryptox"
	"github.com/aussiebroadwan/tabchat/pkg/idx"
	"github.com/aussiebroadwan/tabchat/pkg/slogx"
)

const (
	MaxUsernameLength = 20
	MaxPasswordLength = 255
	MaxEmailLength    = 254

	// DeletionDelay is how long a scheduled account deletion waits. Logging
	// in before then cancels it.
	DeletionDelay = 7 * 24 * time.Hour
)

// Sealer protects sensitive fields at rest.
type Sealer interface {
	Encrypt(ctx context.Context, plaintext string) (id, ciphertext string, err error)
	Decrypt(ctx context.Context, id, ciphertext string) (string, error)
}

// Presence reports and severs live connections.
type Presence interface {
	IsOnline(userID string) bool
	Kick(userID string) int
}

type UserService struct {
	Store    store.Store
	Sessions *SessionService
	Sealer   Sealer
	Presence Presence
	Clock    clock.Clock
}

func (s *UserService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 || n > MaxUsernameLength || strings.TrimSpace(username) != username {
		return fmt.Errorf("%w: username must be 1-%d characters", ErrInvalidInput, MaxUsernameLength)
	}
	return nil
}

// Signup creates an account. A non-empty email is stored encrypted.
func (s *UserService) Signup(ctx context.Context, username, password, email string) (domain.User, error) {
	if err := validateUsername(username); err != nil {
		return domain.User{}, err
	}
	if password == "" || len(password) > MaxPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be 1-%d bytes", ErrInvalidInput, MaxPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		PasswordHash: hash,
		Level:        domain.LevelUser,
		Status:       domain.StatusOnline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if email != "" {
		if u.EmailKeyID, u.EmailCiphertext, err = s.sealEmail(ctx, email); err != nil {
			return domain.User{}, err
		}
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, unavailable(err)
	}
	return u, nil
}

func (s *UserService) sealEmail(ctx context.Context, email string) (string, string, error) {
	if len(email) > MaxEmailLength || !strings.Contains(email, "@") {
		return "", "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return s.Sealer.Encrypt(ctx, email)
}

// Lookup returns a live account by username.
func (s *UserService) Lookup(ctx context.Context, username string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && u.Deleted) {
		return domain.User{}, ErrUnknownUser
	}
	if err != nil {
		return domain.User{}, unavailable(err)
	}
	return u, nil
}

// CheckPassword verifies credentials without issuing a session.
func (s *UserService) CheckPassword(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.Lookup(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	if u.Banned {
		return domain.User{}, ErrBanned
	}
	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("password check failed", slog.String("user_id", u.ID))
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login verifies credentials and issues a foundation session.
func (s *UserService) Login(ctx context.Context, username, password, userAgent string) (domain.Foundation, error) {
	u, err := s.CheckPassword(ctx, username, password)
	if err != nil {
		return domain.Foundation{}, err
	}
	return s.Sessions.Foundation(ctx, u.ID, userAgent)
}

// Profile renders a public profile. The owner also sees their email when it
// can be decrypted.
func (s *UserService) Profile(ctx context.Context, username, requesterID string) (domain.Profile, error) {
	u, err := s.Lookup(ctx, username)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.render(ctx, u, requesterID == u.ID), nil
}

// Me renders the caller's own profile.
func (s *UserService) Me(ctx context.Context, user domain.User) domain.Profile {
	return s.render(ctx, user, true)
}

func (s *UserService) render(ctx context.Context, u domain.User, owner bool) domain.Profile {
	online := s.Presence != nil && s.Presence.IsOnline(u.ID)

	p := u.Profile()
	p.Status = u.Presence(online, s.now())
	if !owner {
		p.DeleteAfter = nil
		return p
	}

	if u.HasEmail() {
		email, err := s.Sealer.Decrypt(ctx, u.EmailKeyID, u.EmailCiphertext)
		if err != nil {
			slogx.FromContext(ctx).Warn("email unavailable for profile",
				slog.String("user_id", u.ID),
				slog.String("error", err.Error()))
		} else {
			p.Email = email
		}
	}
	return p
}

// UpdateEmail replaces the stored email with a freshly sealed one.
func (s *UserService) UpdateEmail(ctx context.Context, userID, email string) error {
	keyID, ct, err := s.sealEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdateEmail(ctx, userID, keyID, ct); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownUser
		}
		return unavailable(err)
	}
	return nil
}

// ScheduleDeletion marks the account for deletion after DeletionDelay.
func (s *UserService) ScheduleDeletion(ctx context.Context, userID string) (time.Time, error) {
	at := s.now().Add(DeletionDelay)
	if err := s.Store.Users().SetDeleteAfter(ctx, userID, &at); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, ErrUnknownUser
		}
		return time.Time{}, unavailable(err)
	}
	return at, nil
}

// Ban marks the account banned, revokes every session it holds and closes
// its live connections.
func (s *UserService) Ban(ctx context.Context, userID string) (revoked int64, err error) {
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetBanned(ctx, userID, true); err != nil {
			return err
		}
		revoked, err = tx.Sessions().DeleteUserSessions(ctx, userID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrUnknownUser
	}
	if err != nil {
		return 0, unavailable(err)
	}

	if s.Presence != nil {
		kicked := s.Presence.Kick(userID)
		slogx.FromContext(ctx).Info("user banned",
			slog.String("user_id", userID),
			slog.Int64("sessions_revoked", revoked),
			slog.Int("connections_closed", kicked))
	}
	return revoked, nil
}
