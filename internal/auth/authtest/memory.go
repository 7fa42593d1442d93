// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package authtest provides in-memory auth repositories for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/auth"
)

// UserStore is an in-memory auth.UserRepository enforcing the same
// uniqueness rules as the SQL stores.
type UserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]auth.User
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]auth.User)}
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *UserStore) conflict(id int64, username, email string) error {
	for _, u := range s.users {
		if u.ID == id {
			continue
		}
		if u.Username == username {
			return auth.UsernameTakenError(username)
		}
		if u.Email == email {
			return auth.EmailTakenError(email)
		}
	}
	return nil
}

// Create stores a copy of user and assigns its ID.
func (s *UserStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conflict(0, user.Username, user.Email); err != nil {
		return err
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = *user
	return nil
}

// GetByID returns a copy of the user with id.
func (s *UserStore) GetByID(_ context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) find(match func(auth.User) bool) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByEmail returns a copy of the user with email.
func (s *UserStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	email = auth.NormalizeEmail(email)
	return s.find(func(u auth.User) bool { return u.Email == email })
}

// GetByUsername returns a copy of the user with username.
func (s *UserStore) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return s.find(func(u auth.User) bool { return u.Username == username })
}

// UpdateProfile replaces username, email and image file.
func (s *UserStore) UpdateProfile(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.ID]
	if !ok {
		return auth.ErrNotFound
	}
	if err := s.conflict(user.ID, user.Username, user.Email); err != nil {
		return err
	}
	stored.Username, stored.Email, stored.ImageFile = user.Username, user.Email, user.ImageFile
	stored.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = stored
	return nil
}

// UpdatePassword replaces the password hash.
func (s *UserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	stored.PasswordHash = passwordHash
	s.users[id] = stored
	return nil
}

// RecordLoginFailure increments the failure counter under the store lock.
func (s *UserStore) RecordLoginFailure(_ context.Context, id int64, now time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[id]
	if !ok {
		return 0, nil, auth.ErrNotFound
	}
	stored.RecordFailure(now)
	s.users[id] = stored
	return stored.FailedAttempts, stored.LockedUntil, nil
}

// ResetLoginFailures clears the lockout counters.
func (s *UserStore) ResetLoginFailures(_ context.Context, id int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	stored.RecordSuccess(now)
	s.users[id] = stored
	return nil
}

// SessionStore is an in-memory auth.WebSessionRepository.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[ulid.ULID]auth.WebSession
	lookupErr error
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[ulid.ULID]auth.WebSession)}
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Create stores a copy of session.
func (s *SessionStore) Create(_ context.Context, session *auth.WebSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

// FailLookups makes GetByTokenHash return err until called again with nil.
func (s *SessionStore) FailLookups(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupErr = err
}

// GetByTokenHash returns the session with tokenHash.
func (s *SessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*auth.WebSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash {
			found := sess
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

// UpdateLastSeen sets LastSeenAt.
func (s *SessionStore) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return auth.ErrNotFound
	}
	sess.LastSeenAt = lastSeen
	s.sessions[id] = sess
	return nil
}

// Delete removes the session with id.
func (s *SessionStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// DeleteByUser removes every session of userID.
func (s *SessionStore) DeleteByUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// DeleteExpired removes sessions expired at now.
func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.IsExpiredAt(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ auth.UserRepository       = (*UserStore)(nil)
	_ auth.WebSessionRepository = (*SessionStore)(nil)
)
