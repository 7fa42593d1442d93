// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/store"
)

// Unique constraint names from the users migration.
const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

const userColumns = `id, username, email, image_file, password_hash,
	failed_attempts, locked_until, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db store.Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.Querier) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user and sets its ID from the database. Username and email
// uniqueness is enforced by the database in the same statement.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (
			username, email, image_file, password_hash,
			failed_attempts, locked_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		user.Username,
		user.Email,
		user.ImageFile,
		user.PasswordHash,
		user.FailedAttempts,
		user.LockedUntil,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return mapWriteError("insert user", user, err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StorageError("get user by id", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. Emails are stored lowercased.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, auth.NormalizeEmail(email))
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StorageError("get user by email", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StorageError("get user by username", err)
	}
	return user, nil
}

// UpdateProfile writes username, email and image file in one statement.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *auth.User) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET username = $2, email = $3, image_file = $4, updated_at = $5
		WHERE id = $1
	`, user.ID, user.Username, user.Email, user.ImageFile, user.UpdatedAt)
	if err != nil {
		return mapWriteError("update profile", user, err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", user.ID).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id, passwordHash, time.Now().UTC())
	if err != nil {
		return auth.StorageError("update password", err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// RecordLoginFailure bumps the failure counter in a single statement so
// concurrent failures cannot overwrite each other.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id int64, now time.Time) (int, *time.Time, error) {
	var (
		failures    int
		lockedUntil *time.Time
	)
	err := r.db.QueryRow(ctx, `
		UPDATE users SET
			failed_attempts = failed_attempts + 1,
			locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE locked_until END,
			updated_at = $4
		WHERE id = $1
		RETURNING failed_attempts, locked_until
	`, id, auth.LockoutThreshold, now.Add(auth.LockoutDuration), now).Scan(&failures, &lockedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, nil, auth.StorageError("record login failure", err)
	}
	return failures, lockedUntil, nil
}

// ResetLoginFailures clears the lockout counters.
func (r *UserRepository) ResetLoginFailures(ctx context.Context, id int64, now time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = $2
		WHERE id = $1
	`, id, now)
	if err != nil {
		return auth.StorageError("reset login failures", err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// mapWriteError turns a unique violation into the matching taken error and
// anything else into a storage error.
func mapWriteError(op string, user *auth.User, err error) error {
	if constraint, ok := store.UniqueViolation(err); ok {
		switch constraint {
		case usernameConstraint:
			return auth.UsernameTakenError(user.Username)
		case emailConstraint:
			return auth.EmailTakenError(user.Email)
		}
	}
	return auth.StorageError(op, err)
}

// scanUser scans a single row. pgx.ErrNoRows is returned unwrapped.
func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.ImageFile,
		&u.PasswordHash,
		&u.FailedAttempts,
		&u.LockedUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	return &u, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
