package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories so a Tx-scoped store cannot start a nested transaction.
type Store interface {
	Users() Users
	Sessions() Sessions
	Posts() Posts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn within a transaction, rolling back if fn returns an error.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u domain.User) error

	UpdateEmail(ctx context.Context, userID, keyID, ciphertext string) error
	SetBanned(ctx context.Context, userID string, banned bool) error
	SetSuspendedUntil(ctx context.Context, userID string, until *time.Time) error

	// SetDeleteAfter schedules (or with nil, cancels) account deletion.
	SetDeleteAfter(ctx context.Context, userID string, at *time.Time) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)
	GetSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error)

	// FindSessionByPreviousRefresh returns the session whose refresh history
	// contains hash.
	FindSessionByPreviousRefresh(ctx context.Context, hash string) (domain.Session, error)

	// ExtendSession sets expires to the later of its current value and
	// candidate, returning the stored value. Null expiry is left untouched.
	ExtendSession(ctx context.Context, id string, candidate time.Time) (*time.Time, error)

	// RotateRefresh swaps the refresh fingerprint if it still equals oldHash,
	// appending oldHash to the history. ErrNotFound when the swap lost.
	RotateRefresh(ctx context.Context, id, oldHash, newHash string, refreshExpires, expires time.Time) error

	// DeleteSession is idempotent.
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)

	// DeleteExpiredSessions removes sessions whose usable lifetime ended
	// before now: access expiry for kinds 0-4 and refresh expiry for kind 5.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Posts interface {
	CreatePost(ctx context.Context, p domain.Post) error
	GetPostByID(ctx context.Context, id string) (domain.Post, error)

	// ListLatestPosts returns newest first.
	ListLatestPosts(ctx context.Context, limit int) ([]domain.Post, error)
}
