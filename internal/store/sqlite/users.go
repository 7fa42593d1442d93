// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
)

const userColumns = `id, username, email, image_file, password_hash,
	failed_attempts, locked_until, created_at, updated_at`

// UserRepository implements auth.UserRepository on SQLite.
type UserRepository struct {
	db *sql.DB
}

// Create inserts user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			username, email, image_file, password_hash,
			failed_attempts, locked_until, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.Username,
		user.Email,
		user.ImageFile,
		user.PasswordHash,
		user.FailedAttempts,
		toNullUnix(user.LockedUntil),
		toUnix(user.CreatedAt),
		toUnix(user.UpdatedAt),
	)
	if err != nil {
		return mapWriteError("insert user", user, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return auth.StorageError("insert user", err)
	}
	user.ID = id
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, op, column string, value any) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	var (
		u                    auth.User
		lockedUntil          sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.ImageFile,
		&u.PasswordHash,
		&u.FailedAttempts,
		&lockedUntil,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With(column, value).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StorageError(op, err)
	}
	u.LockedUntil = fromNullUnix(lockedUntil)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return &u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return r.getBy(ctx, "get user by id", "id", id)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getBy(ctx, "get user by email", "email", auth.NormalizeEmail(email))
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.getBy(ctx, "get user by username", "username", username)
}

// UpdateProfile writes username, email and image file in one statement.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *auth.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, image_file = ?, updated_at = ?
		WHERE id = ?
	`, user.Username, user.Email, user.ImageFile, toUnix(user.UpdatedAt), user.ID)
	if err != nil {
		return mapWriteError("update profile", user, err)
	}
	return requireRow(res, user.ID)
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, passwordHash, toUnix(time.Now()), id)
	if err != nil {
		return auth.StorageError("update password", err)
	}
	return requireRow(res, id)
}

// RecordLoginFailure bumps the failure counter in a single statement.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id int64, now time.Time) (int, *time.Time, error) {
	var (
		failures    int
		lockedUntil sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			failed_attempts = failed_attempts + 1,
			locked_until = CASE WHEN failed_attempts + 1 >= ? THEN ? ELSE locked_until END,
			updated_at = ?
		WHERE id = ?
		RETURNING failed_attempts, locked_until
	`, auth.LockoutThreshold, toUnix(now.Add(auth.LockoutDuration)), toUnix(now), id).Scan(&failures, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, nil, auth.StorageError("record login failure", err)
	}
	return failures, fromNullUnix(lockedUntil), nil
}

// ResetLoginFailures clears the lockout counters.
func (r *UserRepository) ResetLoginFailures(ctx context.Context, id int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = ? WHERE id = ?
	`, toUnix(now), id)
	if err != nil {
		return auth.StorageError("reset login failures", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return auth.StorageError("rows affected", err)
	}
	if n == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

func mapWriteError(op string, user *auth.User, err error) error {
	if column, ok := uniqueViolation(err); ok {
		switch column {
		case "users.username":
			return auth.UsernameTakenError(user.Username)
		case "users.email":
			return auth.EmailTakenError(user.Email)
		}
	}
	return auth.StorageError(op, err)
}

var _ auth.UserRepository = (*UserRepository)(nil)
