// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/pkg/errutil"
)

// Service registers users and manages their web sessions.
type Service struct {
	users       UserRepository
	sessions    WebSessionRepository
	hasher      PasswordHasher
	sessionTTL  time.Duration
	rememberTTL time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL sets the lifetime of regular and remembered sessions.
func WithSessionTTL(session, remember time.Duration) Option {
	return func(s *Service) {
		if session > 0 {
			s.sessionTTL = session
		}
		if remember > 0 {
			s.rememberTTL = remember
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAuthService creates a new Service.
func NewAuthService(users UserRepository, sessions WebSessionRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}

	s := &Service{
		users:       users,
		sessions:    sessions,
		hasher:      hasher,
		sessionTTL:  DefaultSessionTTL,
		rememberTTL: DefaultRememberTTL,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyPasswordHash is verified when no user matches the email so that
// unknown and known accounts take the same time to reject.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}

// Register validates the input, hashes the password and creates the user.
// A taken username or email yields an ErrUniqueViolation error and leaves the
// existing record untouched.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	// Validate before paying for the hash.
	if err := ValidateUsername(strings.TrimSpace(username)); err != nil {
		return nil, err
	}
	if err := ValidateEmail(NormalizeEmail(email)); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := NewUser(username, email, hash)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUniqueViolation) {
			return nil, err
		}
		return nil, oops.With("operation", "create user").Wrap(err)
	}
	return user, nil
}

// Authenticate checks an email/password pair and returns the matching user.
// Every rejection yields AUTH_INVALID_CREDENTIALS. Rejections of a locked
// account also wrap ErrAccountLocked.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(email))

	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		user = nil
	default:
		return nil, oops.With("operation", "get user by email").Wrap(lookupErr)
	}

	// Always verify, even against the dummy hash, to keep timing uniform.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if user != nil {
			errutil.LogError(s.logger, "stored password hash is unreadable", oops.With("user_id", user.ID).Wrap(verifyErr))
		}
		valid = false
	}

	now := s.now().UTC()

	// A locked account is rejected whatever the password, with the same
	// error a wrong password gets, and the attempt is not counted.
	if user != nil && user.IsLockedAt(now) {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			With("user_id", user.ID).
			With("locked_until", user.LockedUntil).
			Wrap(ErrAccountLocked)
	}

	if user == nil || !valid {
		if user != nil {
			if _, _, err := s.users.RecordLoginFailure(ctx, user.ID, now); err != nil {
				errutil.LogError(s.logger, "failed to record login failure", err)
			}
		}
		return nil, invalidCredentials()
	}

	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		if err := s.users.ResetLoginFailures(ctx, user.ID, now); err != nil {
			errutil.LogError(s.logger, "failed to reset login failures", err)
		} else {
			user.RecordSuccess(now)
		}
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, err := s.hasher.Hash(password); err == nil {
			if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
				errutil.LogError(s.logger, "failed to upgrade password hash", err)
			} else {
				user.PasswordHash = newHash
			}
		}
	}

	return user, nil
}

// Login binds a new session to user and returns it with the plaintext token.
// A remembered session outlives the default session lifetime.
func (s *Service) Login(ctx context.Context, user *User, remember bool, client ClientInfo) (*WebSession, string, error) {
	if user == nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").Errorf("user is required")
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberTTL
	}
	now := s.now().UTC()
	session, err := NewWebSession(user.ID, tokenHash, remember, client, now, now.Add(ttl))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create web session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	return session, token, nil
}

// Logout destroys the session bound to token. Unknown or empty tokens are
// already logged out and return nil.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// ValidateSession returns the live session for token and refreshes its
// LastSeenAt. Expired sessions are deleted.
func (s *Service) ValidateSession(ctx context.Context, token string) (*WebSession, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	now := s.now().UTC()
	if session.IsExpiredAt(now) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			errutil.LogError(s.logger, "failed to delete expired session", err)
		}
		return nil, oops.Code("SESSION_EXPIRED").Errorf("session has expired")
	}

	if err := s.sessions.UpdateLastSeen(ctx, session.ID, now); err != nil {
		errutil.LogError(s.logger, "failed to update session last seen", err)
	}

	return session, nil
}

// CurrentIdentity resolves token to its user. A missing, unknown or expired
// session yields (nil, false, nil) and the caller should forget the token. A
// storage failure yields a non-nil error and says nothing about the token.
func (s *Service) CurrentIdentity(ctx context.Context, token string) (*User, bool, error) {
	if token == "" {
		return nil, false, nil
	}

	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		switch errutil.Code(err) {
		case "SESSION_INVALID", "SESSION_EXPIRED":
			s.logger.Debug("session rejected", "code", errutil.Code(err))
			return nil, false, nil
		}
		return nil, false, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session user").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return user, true, nil
}

// RevokeUserSessions logs the user out everywhere.
func (s *Service) RevokeUserSessions(ctx context.Context, userID int64) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("AUTH_REVOKE_FAILED").With("user_id", userID).Wrap(err)
	}
	return nil
}

// DeleteExpiredSessions purges sessions that have passed their expiry.
func (s *Service) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}
