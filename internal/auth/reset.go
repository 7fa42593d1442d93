// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultResetTokenTTL is how long an issued reset token stays valid.
const DefaultResetTokenTTL = 1800 * time.Second

// MinSecretLength is the shortest signing secret accepted.
const MinSecretLength = 32

// resetClaims is the signed payload of a reset token.
type resetClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

// ResetTokenService issues and verifies stateless, signed, expiring tokens
// that bind to a user id. Nothing about issued tokens is stored, so a token
// stays usable until it expires.
type ResetTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// ResetTokenOption configures a ResetTokenService.
type ResetTokenOption func(*ResetTokenService)

// WithResetTTL overrides DefaultResetTokenTTL.
func WithResetTTL(ttl time.Duration) ResetTokenOption {
	return func(s *ResetTokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResetClock replaces the time source used for issuing and verifying.
func WithResetClock(now func() time.Time) ResetTokenOption {
	return func(s *ResetTokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewResetTokenService creates a ResetTokenService signing with secret.
func NewResetTokenService(secret []byte, opts ...ResetTokenOption) (*ResetTokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("RESET_SECRET_INVALID").
			With("min", MinSecretLength).
			Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	s := &ResetTokenService{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultResetTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the default token lifetime.
func (s *ResetTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue returns a token for userID valid for the default TTL.
func (s *ResetTokenService) Issue(userID int64) (string, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL returns a token for userID valid for ttl.
func (s *ResetTokenService) IssueWithTTL(userID int64, ttl time.Duration) (string, error) {
	if userID <= 0 {
		return "", oops.Code("RESET_TOKEN_ISSUE_FAILED").With("user_id", userID).Errorf("user ID must be positive")
	}
	if ttl <= 0 {
		return "", oops.Code("RESET_TOKEN_ISSUE_FAILED").With("ttl", ttl).Errorf("ttl must be positive")
	}

	now := s.now()
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("RESET_TOKEN_ISSUE_FAILED").With("user_id", userID).Wrap(err)
	}
	return signed, nil
}

// Verify returns the user id bound to token. Every failure (malformed input,
// wrong algorithm, bad signature, expiry, missing user id) returns (0, false)
// so callers cannot tell the causes apart.
func (s *ResetTokenService) Verify(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}

	claims := &resetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || parsed == nil || !parsed.Valid || claims.UserID <= 0 {
		return 0, false
	}
	return claims.UserID, true
}
