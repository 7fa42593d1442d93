// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/auth/authtest"
	"github.com/inkwell/inkwell/internal/auth/mocks"
	"github.com/inkwell/inkwell/pkg/errutil"
)

var errDB = errors.New("connection refused")

func newMemoryService(t *testing.T, opts ...auth.Option) (*auth.Service, *authtest.UserStore, *authtest.SessionStore) {
	t.Helper()
	users := authtest.NewUserStore()
	sessions := authtest.NewSessionStore()
	svc, err := auth.NewAuthService(users, sessions, auth.NewMultiHasher(auth.NewArgon2idHasherWithParams(fastParams)), opts...)
	require.NoError(t, err)
	return svc, users, sessions
}

func TestNewAuthService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		sessions    auth.WebSessionRepository
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil users repository",
			sessions:    mocks.NewMockWebSessionRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "users repository is required",
		},
		{
			name:        "nil sessions repository",
			users:       mocks.NewMockUserRepository(t),
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "sessions repository is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			sessions:    mocks.NewMockWebSessionRepository(t),
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewAuthService(tt.users, tt.sessions, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes password and creates user", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), hasher)
		require.NoError(t, err)

		hasher.On("Hash", "pw123").Return("$argon2id$hashed", nil)
		users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Username == "alice" && u.Email == "alice@example.com" && u.PasswordHash == "$argon2id$hashed"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*auth.User).ID = 1
		}).Return(nil)

		user, err := svc.Register(ctx, "alice", "Alice@Example.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, auth.DefaultImageFile, user.ImageFile)
		assert.NotEqual(t, "pw123", user.PasswordHash)
	})

	t.Run("duplicate email is rejected and first user kept", func(t *testing.T) {
		svc, users, _ := newMemoryService(t)

		alice, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)
		require.Equal(t, 1, users.Len())

		bob, err := svc.Register(ctx, "bob", "alice@example.com", "pw456")
		require.Error(t, err)
		assert.Nil(t, bob)
		assert.ErrorIs(t, err, auth.ErrUniqueViolation)
		errutil.AssertErrorCode(t, err, "USER_EMAIL_TAKEN")
		assert.Equal(t, 1, users.Len())

		stored, err := users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, stored.ID)
		assert.Equal(t, "alice", stored.Username)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		svc, users, _ := newMemoryService(t)

		_, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice", "other@example.com", "pw456")
		assert.ErrorIs(t, err, auth.ErrUniqueViolation)
		errutil.AssertErrorCode(t, err, "USER_USERNAME_TAKEN")
		assert.Equal(t, 1, users.Len())
	})

	t.Run("invalid username skips hashing", func(t *testing.T) {
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(mocks.NewMockUserRepository(t), mocks.NewMockWebSessionRepository(t), hasher)
		require.NoError(t, err)

		_, err = svc.Register(ctx, "a", "alice@example.com", "pw123")
		errutil.AssertErrorCode(t, err, "USER_INVALID_USERNAME")
		hasher.AssertNotCalled(t, "Hash", mock.Anything)
	})

	t.Run("empty password rejected", func(t *testing.T) {
		svc, users, _ := newMemoryService(t)
		_, err := svc.Register(ctx, "alice", "alice@example.com", "")
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
		assert.Zero(t, users.Len())
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), hasher)
		require.NoError(t, err)

		hasher.On("Hash", "pw123").Return("hashed", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(auth.StorageError("create user", errDB))

		_, err = svc.Register(ctx, "alice", "alice@example.com", "pw123")
		assert.ErrorIs(t, err, auth.ErrStorageUnavailable)
		errutil.AssertErrorCode(t, err, "STORAGE_UNAVAILABLE")
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	hash := "$argon2id$v=19$m=65536,t=1,p=4$salt$hash"

	newUser := func() *auth.User {
		return &auth.User{ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: hash}
	}

	t.Run("correct password returns user", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "alice@example.com").Return(newUser(), nil)
		hasher.On("Verify", "pw123", hash).Return(true, nil)
		hasher.On("NeedsUpgrade", hash).Return(false)

		user, err := svc.Authenticate(ctx, " ALICE@example.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("unknown email verifies dummy hash and fails generically", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, auth.ErrNotFound)
		hasher.On("Verify", "pw123", mock.AnythingOfType("string")).Return(false, nil)

		user, err := svc.Authenticate(ctx, "nobody@example.com", "pw123")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("wrong password records failure", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "alice@example.com").Return(newUser(), nil)
		hasher.On("Verify", "wrong", hash).Return(false, nil)
		users.On("RecordLoginFailure", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(1, nil, nil)

		_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		svc, _, _ := newMemoryService(t)
		_, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		_, errUnknown := svc.Authenticate(ctx, "nobody@example.com", "pw123")
		_, errWrong := svc.Authenticate(ctx, "alice@example.com", "nope")
		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.Equal(t, errutil.Code(errUnknown), errutil.Code(errWrong))
	})

	t.Run("malformed stored hash fails as invalid credentials", func(t *testing.T) {
		svc, users, _ := newMemoryService(t)
		user := &auth.User{Username: "alice", Email: "alice@example.com", PasswordHash: "garbage", ImageFile: auth.DefaultImageFile}
		require.NoError(t, users.Create(ctx, user))

		_, err := svc.Authenticate(ctx, "alice@example.com", "pw123")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("storage failure is not reported as invalid credentials", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "alice@example.com").Return(nil, auth.StorageError("get user by email", errDB))

		_, err = svc.Authenticate(ctx, "alice@example.com", "pw123")
		assert.ErrorIs(t, err, auth.ErrStorageUnavailable)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("locked account rejects correct and wrong passwords alike", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), hasher,
			auth.WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		locked := func() *auth.User {
			u := newUser()
			until := now.Add(5 * time.Minute)
			u.FailedAttempts = auth.LockoutThreshold
			u.LockedUntil = &until
			return u
		}

		users.On("GetByEmail", ctx, "alice@example.com").Return(locked(), nil).Once()
		hasher.On("Verify", "pw123", hash).Return(true, nil)
		_, errCorrect := svc.Authenticate(ctx, "alice@example.com", "pw123")

		users.On("GetByEmail", ctx, "alice@example.com").Return(locked(), nil).Once()
		hasher.On("Verify", "wrong", hash).Return(false, nil)
		_, errWrong := svc.Authenticate(ctx, "alice@example.com", "wrong")

		for _, err := range []error{errCorrect, errWrong} {
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
			assert.ErrorIs(t, err, auth.ErrAccountLocked)
		}
		assert.Equal(t, errCorrect.Error(), errWrong.Error())
		users.AssertNotCalled(t, "RecordLoginFailure", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("seventh failure locks the account", func(t *testing.T) {
		svc, users, _ := newMemoryService(t)
		_, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		for i := 0; i < auth.LockoutThreshold; i++ {
			_, err := svc.Authenticate(ctx, "alice@example.com", "wrong")
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		}

		stored, err := users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, auth.LockoutThreshold, stored.FailedAttempts)
		assert.NotNil(t, stored.LockedUntil)

		_, err = svc.Authenticate(ctx, "alice@example.com", "pw123")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		assert.ErrorIs(t, err, auth.ErrAccountLocked)

		stored, err = users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, auth.LockoutThreshold, stored.FailedAttempts, "attempts while locked are not counted")
	})

	t.Run("concurrent failures are all counted", func(t *testing.T) {
		svc, users, _ := newMemoryService(t)
		_, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		const attempts = auth.LockoutThreshold - 1
		var wg sync.WaitGroup
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.Authenticate(ctx, "alice@example.com", "wrong")
			}()
		}
		wg.Wait()

		stored, err := users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, attempts, stored.FailedAttempts)
	})

	t.Run("success clears failure counter", func(t *testing.T) {
		svc, users, _ := newMemoryService(t)
		_, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
		require.Error(t, err)
		_, err = svc.Authenticate(ctx, "alice@example.com", "pw123")
		require.NoError(t, err)

		stored, err := users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Zero(t, stored.FailedAttempts)
	})

	t.Run("upgrades hash when needed", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewAuthService(users, mocks.NewMockWebSessionRepository(t), hasher)
		require.NoError(t, err)

		legacy := newUser()
		legacy.PasswordHash = "$2b$12$legacy"
		users.On("GetByEmail", ctx, "alice@example.com").Return(legacy, nil)
		hasher.On("Verify", "pw123", "$2b$12$legacy").Return(true, nil)
		hasher.On("NeedsUpgrade", "$2b$12$legacy").Return(true)
		hasher.On("Hash", "pw123").Return("$argon2id$new", nil)
		users.On("UpdatePassword", ctx, int64(1), "$argon2id$new").Return(nil)

		user, err := svc.Authenticate(ctx, "alice@example.com", "pw123")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$new", user.PasswordHash)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	user := &auth.User{ID: 7, Username: "alice", Email: "alice@example.com"}

	newSvc := func(t *testing.T) (*auth.Service, *mocks.MockWebSessionRepository) {
		sessions := mocks.NewMockWebSessionRepository(t)
		svc, err := auth.NewAuthService(mocks.NewMockUserRepository(t), sessions, mocks.NewMockPasswordHasher(t),
			auth.WithClock(func() time.Time { return now }),
			auth.WithSessionTTL(2*time.Hour, 30*24*time.Hour))
		require.NoError(t, err)
		return svc, sessions
	}

	t.Run("session uses default lifetime", func(t *testing.T) {
		svc, sessions := newSvc(t)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.WebSession")).Return(nil)

		session, token, err := svc.Login(ctx, user, false, auth.ClientInfo{UserAgent: "ua", IPAddress: "10.0.0.1"})
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.Equal(t, int64(7), session.UserID)
		assert.False(t, session.Remember)
		assert.Equal(t, now.Add(2*time.Hour), session.ExpiresAt)
		assert.Equal(t, auth.HashSessionToken(token), session.TokenHash)
		assert.Equal(t, "10.0.0.1", session.IPAddress)
	})

	t.Run("remember extends lifetime", func(t *testing.T) {
		svc, sessions := newSvc(t)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.WebSession")).Return(nil)

		session, _, err := svc.Login(ctx, user, true, auth.ClientInfo{})
		require.NoError(t, err)
		assert.True(t, session.Remember)
		assert.Equal(t, now.Add(30*24*time.Hour), session.ExpiresAt)
	})

	t.Run("persist failure", func(t *testing.T) {
		svc, sessions := newSvc(t)
		sessions.On("Create", ctx, mock.AnythingOfType("*auth.WebSession")).Return(errDB)

		session, token, err := svc.Login(ctx, user, false, auth.ClientInfo{})
		assert.Nil(t, session)
		assert.Empty(t, token)
		errutil.AssertErrorCode(t, err, "AUTH_SESSION_CREATE_FAILED")
	})

	t.Run("nil user", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, _, err := svc.Login(ctx, nil, false, auth.ClientInfo{})
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token is a no-op", func(t *testing.T) {
		svc, err := auth.NewAuthService(mocks.NewMockUserRepository(t), mocks.NewMockWebSessionRepository(t), mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)
		assert.NoError(t, svc.Logout(ctx, ""))
	})

	t.Run("unknown token is a no-op", func(t *testing.T) {
		sessions := mocks.NewMockWebSessionRepository(t)
		svc, err := auth.NewAuthService(mocks.NewMockUserRepository(t), sessions, mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		sessions.On("GetByTokenHash", ctx, auth.HashSessionToken("tok")).Return(nil, auth.ErrNotFound)
		assert.NoError(t, svc.Logout(ctx, "tok"))
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		sessions := mocks.NewMockWebSessionRepository(t)
		svc, err := auth.NewAuthService(mocks.NewMockUserRepository(t), sessions, mocks.NewMockPasswordHasher(t))
		require.NoError(t, err)

		sessions.On("GetByTokenHash", ctx, auth.HashSessionToken("tok")).Return(nil, errDB)
		err = svc.Logout(ctx, "tok")
		require.Error(t, err)
		assert.ErrorIs(t, err, errDB)
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	newSvc := func(t *testing.T) (*auth.Service, *mocks.MockWebSessionRepository) {
		sessions := mocks.NewMockWebSessionRepository(t)
		svc, err := auth.NewAuthService(mocks.NewMockUserRepository(t), sessions, mocks.NewMockPasswordHasher(t),
			auth.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		return svc, sessions
	}

	t.Run("empty token", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, err := svc.ValidateSession(ctx, "")
		errutil.AssertErrorCode(t, err, "SESSION_TOKEN_EMPTY")
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, sessions := newSvc(t)
		sessions.On("GetByTokenHash", ctx, auth.HashSessionToken("tok")).Return(nil, auth.ErrNotFound)
		_, err := svc.ValidateSession(ctx, "tok")
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
	})

	t.Run("expired session is deleted", func(t *testing.T) {
		svc, sessions := newSvc(t)
		expired := &auth.WebSession{UserID: 7, TokenHash: auth.HashSessionToken("tok"), ExpiresAt: now.Add(-time.Second)}
		sessions.On("GetByTokenHash", ctx, expired.TokenHash).Return(expired, nil)
		sessions.On("Delete", ctx, expired.ID).Return(nil)

		_, err := svc.ValidateSession(ctx, "tok")
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})

	t.Run("live session refreshes last seen", func(t *testing.T) {
		svc, sessions := newSvc(t)
		live := &auth.WebSession{UserID: 7, TokenHash: auth.HashSessionToken("tok"), ExpiresAt: now.Add(time.Hour)}
		sessions.On("GetByTokenHash", ctx, live.TokenHash).Return(live, nil)
		sessions.On("UpdateLastSeen", ctx, live.ID, now).Return(nil)

		session, err := svc.ValidateSession(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, int64(7), session.UserID)
	})

	t.Run("last seen failure does not fail validation", func(t *testing.T) {
		svc, sessions := newSvc(t)
		live := &auth.WebSession{UserID: 7, TokenHash: auth.HashSessionToken("tok"), ExpiresAt: now.Add(time.Hour)}
		sessions.On("GetByTokenHash", ctx, live.TokenHash).Return(live, nil)
		sessions.On("UpdateLastSeen", ctx, live.ID, now).Return(errDB)

		_, err := svc.ValidateSession(ctx, "tok")
		assert.NoError(t, err)
	})
}

func TestAuthService_CurrentIdentity(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tokenHash := auth.HashSessionToken("tok")

	newSvc := func(t *testing.T) (*auth.Service, *mocks.MockUserRepository, *mocks.MockWebSessionRepository) {
		users := mocks.NewMockUserRepository(t)
		sessions := mocks.NewMockWebSessionRepository(t)
		svc, err := auth.NewAuthService(users, sessions, mocks.NewMockPasswordHasher(t),
			auth.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		return svc, users, sessions
	}

	t.Run("unknown token is absent without error", func(t *testing.T) {
		svc, _, sessions := newSvc(t)
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(nil, auth.ErrNotFound)

		user, ok, err := svc.CurrentIdentity(ctx, "tok")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, user)
	})

	t.Run("session lookup failure is an error", func(t *testing.T) {
		svc, _, sessions := newSvc(t)
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(nil, errDB)

		user, ok, err := svc.CurrentIdentity(ctx, "tok")
		assert.False(t, ok)
		assert.Nil(t, user)
		errutil.AssertErrorCode(t, err, "SESSION_VALIDATE_FAILED")
		assert.ErrorIs(t, err, errDB)
	})

	t.Run("user lookup failure is an error", func(t *testing.T) {
		svc, users, sessions := newSvc(t)
		live := &auth.WebSession{UserID: 7, TokenHash: tokenHash, ExpiresAt: now.Add(time.Hour)}
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(live, nil)
		sessions.On("UpdateLastSeen", ctx, live.ID, now).Return(nil)
		users.On("GetByID", ctx, int64(7)).Return(nil, auth.StorageError("get user by id", errDB))

		_, ok, err := svc.CurrentIdentity(ctx, "tok")
		assert.False(t, ok)
		errutil.AssertErrorCode(t, err, "STORAGE_UNAVAILABLE")
		assert.ErrorIs(t, err, auth.ErrStorageUnavailable)
	})

	t.Run("deleted user is absent without error", func(t *testing.T) {
		svc, users, sessions := newSvc(t)
		live := &auth.WebSession{UserID: 7, TokenHash: tokenHash, ExpiresAt: now.Add(time.Hour)}
		sessions.On("GetByTokenHash", ctx, tokenHash).Return(live, nil)
		sessions.On("UpdateLastSeen", ctx, live.ID, now).Return(nil)
		users.On("GetByID", ctx, int64(7)).Return(nil, auth.ErrNotFound)

		_, ok, err := svc.CurrentIdentity(ctx, "tok")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestService_SessionStateTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("login then logout", func(t *testing.T) {
		svc, _, sessions := newMemoryService(t)
		user, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		// Anonymous
		got, ok, err := svc.CurrentIdentity(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)

		// Anonymous -> Authenticated
		_, token, err := svc.Login(ctx, user, false, auth.ClientInfo{})
		require.NoError(t, err)
		got, ok, err = svc.CurrentIdentity(ctx, token)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, user.ID, got.ID)

		// Authenticated -> Anonymous
		require.NoError(t, svc.Logout(ctx, token))
		got, ok, err = svc.CurrentIdentity(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.Zero(t, sessions.Len())

		// Logging out twice is harmless.
		assert.NoError(t, svc.Logout(ctx, token))
	})

	t.Run("wrong password leaves identity absent", func(t *testing.T) {
		svc, _, sessions := newMemoryService(t)
		_, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		user, err := svc.Authenticate(ctx, "alice@example.com", "wrong")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		assert.Nil(t, user)
		assert.Zero(t, sessions.Len())
	})

	t.Run("expiry ends the session", func(t *testing.T) {
		clock := authtest.NewClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
		svc, _, sessions := newMemoryService(t, auth.WithClock(clock.Now), auth.WithSessionTTL(time.Hour, 48*time.Hour))
		user, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		_, token, err := svc.Login(ctx, user, false, auth.ClientInfo{})
		require.NoError(t, err)
		_, rememberedToken, err := svc.Login(ctx, user, true, auth.ClientInfo{})
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)
		_, ok, err := svc.CurrentIdentity(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = svc.CurrentIdentity(ctx, rememberedToken)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, sessions.Len())
	})

	t.Run("revoke ends all sessions", func(t *testing.T) {
		svc, _, sessions := newMemoryService(t)
		user, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		_, t1, err := svc.Login(ctx, user, false, auth.ClientInfo{})
		require.NoError(t, err)
		_, t2, err := svc.Login(ctx, user, true, auth.ClientInfo{})
		require.NoError(t, err)

		require.NoError(t, svc.RevokeUserSessions(ctx, user.ID))
		_, ok1, err := svc.CurrentIdentity(ctx, t1)
		require.NoError(t, err)
		_, ok2, err := svc.CurrentIdentity(ctx, t2)
		require.NoError(t, err)
		assert.False(t, ok1)
		assert.False(t, ok2)
		assert.Zero(t, sessions.Len())
	})

	t.Run("sweeper deletes expired sessions", func(t *testing.T) {
		clock := authtest.NewClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
		svc, _, sessions := newMemoryService(t, auth.WithClock(clock.Now), auth.WithSessionTTL(time.Hour, 48*time.Hour))
		user, err := svc.Register(ctx, "alice", "alice@example.com", "pw123")
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, user, false, auth.ClientInfo{})
		require.NoError(t, err)
		_, _, err = svc.Login(ctx, user, true, auth.ClientInfo{})
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)
		n, err := svc.DeleteExpiredSessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 1, sessions.Len())
	})
}
