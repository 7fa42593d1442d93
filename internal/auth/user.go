// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"
)

// DefaultImageFile is the avatar every account starts with. It is shared and
// never deleted when a user replaces their picture.
const DefaultImageFile = "default.jpg"

// User field constraints.
const (
	MinUsernameLength = 2
	MaxUsernameLength = 20
	MaxEmailLength    = 120
)

// usernameRegex matches letters, digits, underscores, dots and hyphens.
var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.\-]+$`)

// User is a registered account.
type User struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	ImageFile      string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a validated User. The email is normalized and the image set
// to DefaultImageFile; ID is assigned by the repository on Create.
func NewUser(username, email, passwordHash string) (*User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_PASSWORD_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		ImageFile:    DefaultImageFile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasDefaultImage reports whether the user still uses the shared default avatar.
func (u *User) HasDefaultImage() bool {
	return u.ImageFile == "" || u.ImageFile == DefaultImageFile
}

// IsLockedAt returns true if the user is locked out at the given time.
func (u *User) IsLockedAt(now time.Time) bool {
	return IsLockedOutAt(u.LockedUntil, now)
}

// RecordFailure increments the failure counter and sets lockout if threshold
// reached. Repositories apply the same rule in storage.
func (u *User) RecordFailure(now time.Time) {
	u.FailedAttempts++
	if until := ComputeLockoutTime(u.FailedAttempts, now); until != nil {
		u.LockedUntil = until
	}
	u.UpdatedAt = now
}

// RecordSuccess resets failure counter and lockout.
func (u *User) RecordSuccess(now time.Time) {
	u.FailedAttempts, u.LockedUntil = ResetOnSuccess()
	u.UpdatedAt = now
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks length (in characters) and the allowed alphabet.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 {
		return oops.Code("USER_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if n < MinUsernameLength {
		return oops.Code("USER_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if n > MaxUsernameLength {
		return oops.Code("USER_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("USER_INVALID_USERNAME").
			Errorf("username may contain only letters, numbers, dots, hyphens and underscores")
	}
	return nil
}

// ValidateEmail checks that email is a bare address of acceptable length.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("USER_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code("USER_INVALID_EMAIL").With("email", email).Errorf("invalid email address")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and assigns its ID.
	// Returns an ErrUniqueViolation error (USER_USERNAME_TAKEN or USER_EMAIL_TAKEN)
	// if the username or email is already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// UpdateProfile writes username, email and image file in a single statement.
	UpdateProfile(ctx context.Context, user *User) error

	// UpdatePassword updates only the password hash for a user.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// RecordLoginFailure increments the stored failure counter in place and
	// sets LockedUntil to now+LockoutDuration once it reaches
	// LockoutThreshold. It returns the counter and lockout after the update.
	RecordLoginFailure(ctx context.Context, id int64, now time.Time) (failures int, lockedUntil *time.Time, err error)

	// ResetLoginFailures clears FailedAttempts and LockedUntil.
	ResetLoginFailures(ctx context.Context, id int64, now time.Time) error
}
