// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/pkg/errutil"
)

// ResetNotifier delivers a reset token to the account owner out of band.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, user *User, token string) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID int64) error
}

// PasswordResetService handles the password reset flow on top of
// ResetTokenService.
type PasswordResetService struct {
	users    UserRepository
	tokens   *ResetTokenService
	hasher   PasswordHasher
	sessions SessionRevoker
	notifier ResetNotifier
	logger   *slog.Logger
}

// NewPasswordResetService creates a new PasswordResetService. sessions may be
// nil, in which case existing sessions survive a reset.
func NewPasswordResetService(
	users UserRepository,
	tokens *ResetTokenService,
	hasher PasswordHasher,
	sessions SessionRevoker,
	notifier ResetNotifier,
	logger *slog.Logger,
) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("users repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("token service is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Code("RESET_INVALID_CONFIG").Errorf("notifier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PasswordResetService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// RequestReset issues a token for the account registered under email and
// hands it to the notifier. An unknown email returns nil so the caller cannot
// probe for registered addresses.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user, token); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "send reset notification").
			With("user_id", user.ID).
			Wrap(err)
	}
	return nil
}

// ValidateToken returns the user the token was issued for.
// All token failures, including a vanished user, yield RESET_TOKEN_INVALID.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (*User, error) {
	userID, ok := s.tokens.Verify(token)
	if !ok {
		return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user, nil
}

// ResetPassword sets a new password for the token's user, lifts any login
// lockout and ends all of that user's sessions. The token itself stays valid
// until it expires.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	if newPassword == "" {
		return nil, oops.Code("RESET_PASSWORD_EMPTY").Errorf("new password cannot be empty")
	}

	user, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return nil, oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", user.ID).
			Wrap(err)
	}
	user.PasswordHash = hashed

	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		now := time.Now().UTC()
		if err := s.users.ResetLoginFailures(ctx, user.ID, now); err != nil {
			errutil.LogError(s.logger, "failed to clear lockout after password reset", err)
		} else {
			user.RecordSuccess(now)
		}
	}

	if s.sessions != nil {
		// The password is already changed; a failed revoke is only logged.
		if err := s.sessions.RevokeUserSessions(ctx, user.ID); err != nil {
			errutil.LogError(s.logger, "failed to revoke sessions after password reset", err)
		}
	}
	return user, nil
}
