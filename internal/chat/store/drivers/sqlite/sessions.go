package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/domain"
)

type sessionsRepo struct {
	q querier
}

const sessionColumns = `id, type, user_id, token_hash, user_agent, expires_at,
	lifetime_ms, created_at, action, email, verified, app, scopes,
	refresh_hash, refresh_expires_at, previous_refresh_hashes`

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s                          domain.Session
		userAgent, scopes, history sql.NullString
		action, email, app         sql.NullString
		refreshHash                sql.NullString
		verified                   sql.NullBool
		expires, refreshExpires    sql.NullInt64
		lifetime, created          int64
	)
	err := row.Scan(
		&s.ID, &s.Kind, &s.UserID, &s.TokenHash, &userAgent, &expires,
		&lifetime, &created, &action, &email, &verified, &app, &scopes,
		&refreshHash, &refreshExpires, &history,
	)
	if err != nil {
		return domain.Session{}, err
	}

	s.UserAgent = userAgent.String
	s.Expires = mapNullMillis(expires)
	s.Lifetime = time.Duration(lifetime) * time.Millisecond
	s.Created = fromMillis(created)
	s.Action = mapNullStringPtr(action)
	s.Email = mapNullStringPtr(email)
	if verified.Valid {
		v := verified.Bool
		s.Verified = &v
	}
	s.App = mapNullStringPtr(app)
	if scopes.Valid {
		s.Scopes = strings.Fields(scopes.String)
	}
	s.RefreshHash = refreshHash.String
	s.RefreshExpires = mapNullMillis(refreshExpires)
	if history.Valid {
		if err := json.Unmarshal([]byte(history.String), &s.PreviousRefreshHashes); err != nil {
			return domain.Session{}, err
		}
	}
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	var scopes sql.NullString
	if s.Scopes != nil {
		scopes = sql.NullString{String: strings.Join(s.Scopes, " "), Valid: true}
	}

	var history sql.NullString
	if s.PreviousRefreshHashes != nil {
		b, err := json.Marshal(s.PreviousRefreshHashes)
		if err != nil {
			return err
		}
		history = sql.NullString{String: string(b), Valid: true}
	}

	var verified sql.NullBool
	if s.Verified != nil {
		verified = sql.NullBool{Bool: *s.Verified, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Kind, s.UserID, s.TokenHash, mapStringNull(s.UserAgent), nullMillis(s.Expires),
		s.Lifetime.Milliseconds(), toMillis(s.Created),
		mapOptionalString(s.Action), mapOptionalString(s.Email), verified,
		mapOptionalString(s.App), scopes,
		mapStringNull(s.RefreshHash), nullMillis(s.RefreshExpires), history,
	)
	return mapUniqueViolation(err)
}

func (r *sessionsRepo) GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, hash))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) GetSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_hash = ?`, hash))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) FindSessionByPreviousRefresh(ctx context.Context, hash string) (domain.Session, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions s
		WHERE s.previous_refresh_hashes IS NOT NULL
		  AND EXISTS (SELECT 1 FROM json_each(s.previous_refresh_hashes) WHERE json_each.value = ?)
		LIMIT 1`, hash))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) ExtendSession(ctx context.Context, id string, candidate time.Time) (*time.Time, error) {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET expires_at = MAX(expires_at, ?)
		WHERE id = ? AND expires_at IS NOT NULL`,
		toMillis(candidate), id,
	)
	if err != nil {
		return nil, err
	}

	var expires sql.NullInt64
	if err := r.q.QueryRowContext(ctx,
		`SELECT expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&expires); err != nil {
		return nil, mapNotFound(err)
	}
	return mapNullMillis(expires), nil
}

func (r *sessionsRepo) RotateRefresh(
	ctx context.Context,
	id, oldHash, newHash string,
	refreshExpires, expires time.Time,
) error {
	return requireAffected(r.q.ExecContext(ctx, `
		UPDATE sessions SET
			previous_refresh_hashes = json_insert(COALESCE(previous_refresh_hashes, '[]'), '$[#]', refresh_hash),
			refresh_hash = ?,
			refresh_expires_at = ?,
			expires_at = MAX(COALESCE(expires_at, 0), ?)
		WHERE id = ? AND type = ? AND refresh_hash = ?`,
		newHash, toMillis(refreshExpires), toMillis(expires),
		id, domain.KindAppRefresh, oldHash,
	))
}

func (r *sessionsRepo) DeleteSession(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	ms := toMillis(now)
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE (type <> ? AND expires_at IS NOT NULL AND expires_at <= ?)
		   OR (type = ? AND refresh_expires_at <= ?)`,
		domain.KindAppRefresh, ms, domain.KindAppRefresh, ms,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
