// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
)

// WebSessionRepository implements auth.WebSessionRepository on SQLite.
type WebSessionRepository struct {
	db *sql.DB
}

// Create stores a new web session.
func (r *WebSessionRepository) Create(ctx context.Context, s *auth.WebSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO web_sessions (
			id, user_id, token_hash, remember, user_agent, ip_address,
			expires_at, created_at, last_seen_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID.String(),
		s.UserID,
		s.TokenHash,
		s.Remember,
		s.UserAgent,
		s.IPAddress,
		toUnix(s.ExpiresAt),
		toUnix(s.CreatedAt),
		toUnix(s.LastSeenAt),
	)
	if err != nil {
		return oops.With("user_id", s.UserID).Wrap(auth.StorageError("insert web session", err))
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *WebSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.WebSession, error) {
	var (
		s                                auth.WebSession
		idStr                            string
		expiresAt, createdAt, lastSeenAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, remember, user_agent, ip_address,
		       expires_at, created_at, last_seen_at
		FROM web_sessions WHERE token_hash = ?
	`, tokenHash).Scan(
		&idStr,
		&s.UserID,
		&s.TokenHash,
		&s.Remember,
		&s.UserAgent,
		&s.IPAddress,
		&expiresAt,
		&createdAt,
		&lastSeenAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StorageError("get session by token hash", err)
	}

	s.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	s.ExpiresAt = fromUnix(expiresAt)
	s.CreatedAt = fromUnix(createdAt)
	s.LastSeenAt = fromUnix(lastSeenAt)
	return &s, nil
}

func (r *WebSessionRepository) execOne(ctx context.Context, op string, id ulid.ULID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return auth.StorageError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return auth.StorageError(op, err)
	}
	if n == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *WebSessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	return r.execOne(ctx, "update last seen", id,
		`UPDATE web_sessions SET last_seen_at = ? WHERE id = ?`, toUnix(lastSeen), id.String())
}

// Delete removes a session by ID.
func (r *WebSessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return r.execOne(ctx, "delete web session", id, `DELETE FROM web_sessions WHERE id = ?`, id.String())
}

// DeleteByUser removes every session of a user.
func (r *WebSessionRepository) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE user_id = ?`, userID); err != nil {
		return oops.With("user_id", userID).Wrap(auth.StorageError("delete sessions by user", err))
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (r *WebSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE expires_at <= ?`, toUnix(now))
	if err != nil {
		return 0, auth.StorageError("delete expired sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, auth.StorageError("delete expired sessions", err)
	}
	return n, nil
}

var _ auth.WebSessionRepository = (*WebSessionRepository)(nil)
