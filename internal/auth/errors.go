// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUniqueViolation is returned when a username or email is already taken.
	ErrUniqueViolation = errors.New("unique violation")

	// ErrInvalidCredentials is returned for any failed email/password check.
	// It never says which half of the pair was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked marks a rejected login for a locked account. It wraps
	// ErrInvalidCredentials and is only for server-side accounting; clients
	// see the same response as for a wrong password.
	ErrAccountLocked = fmt.Errorf("%w: account locked", ErrInvalidCredentials)

	// ErrInvalidToken is returned for any reset token that fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrStorageUnavailable is returned when the backing store cannot serve a request.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError wraps a driver failure so callers can match ErrStorageUnavailable
// and the STORAGE_UNAVAILABLE code.
func StorageError(operation string, err error) error {
	return oops.Code("STORAGE_UNAVAILABLE").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStorageUnavailable, err))
}

// UsernameTakenError reports a username uniqueness violation.
func UsernameTakenError(username string) error {
	return oops.Code("USER_USERNAME_TAKEN").
		With("username", username).
		Wrap(fmt.Errorf("username %q: %w", username, ErrUniqueViolation))
}

// EmailTakenError reports an email uniqueness violation.
func EmailTakenError(email string) error {
	return oops.Code("USER_EMAIL_TAKEN").
		With("email", email).
		Wrap(fmt.Errorf("email %q: %w", email, ErrUniqueViolation))
}
