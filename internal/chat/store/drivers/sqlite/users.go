package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, username, password_hash, level, status, quote,
	email_key_id, email_ciphertext, banned, deleted,
	suspended_until, delete_after, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                  domain.User
		keyID, ciphertext  sql.NullString
		suspended, delAftr sql.NullInt64
		created, updated   int64
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Level, &u.Status, &u.Quote,
		&keyID, &ciphertext, &u.Banned, &u.Deleted,
		&suspended, &delAftr, &created, &updated,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.EmailKeyID = keyID.String
	u.EmailCiphertext = ciphertext.String
	u.SuspendedUntil = mapNullMillis(suspended)
	u.DeleteAfter = mapNullMillis(delAftr)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Level, u.Status, u.Quote,
		mapStringNull(u.EmailKeyID), mapStringNull(u.EmailCiphertext), u.Banned, u.Deleted,
		nullMillis(u.SuspendedUntil), nullMillis(u.DeleteAfter),
		toMillis(u.CreatedAt), toMillis(now),
	)
	return mapUniqueViolation(err)
}

func (r *usersRepo) UpdateEmail(ctx context.Context, userID, keyID, ciphertext string) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE users SET email_key_id = ?, email_ciphertext = ?, updated_at = ?
		WHERE id = ?`,
		mapStringNull(keyID), mapStringNull(ciphertext), toMillis(time.Now()), userID,
	))
}

func (r *usersRepo) SetBanned(ctx context.Context, userID string, banned bool) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE users SET banned = ?, updated_at = ? WHERE id = ?`,
		banned, toMillis(time.Now()), userID,
	))
}

func (r *usersRepo) SetSuspendedUntil(ctx context.Context, userID string, until *time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE users SET suspended_until = ?, updated_at = ? WHERE id = ?`,
		nullMillis(until), toMillis(time.Now()), userID,
	))
}

func (r *usersRepo) SetDeleteAfter(ctx context.Context, userID string, at *time.Time) error {
	return requireAffected(r.q.ExecContext(ctx,
		`UPDATE users SET delete_after = ?, updated_at = ? WHERE id = ?`,
		nullMillis(at), toMillis(time.Now()), userID,
	))
}
