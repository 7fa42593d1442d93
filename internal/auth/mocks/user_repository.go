// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/inkwell/inkwell/internal/auth"
)

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t TestingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userResult(args mock.Arguments) (*auth.User, error) {
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return userResult(m.Called(ctx, id))
}

// GetByEmail provides a mock function.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return userResult(m.Called(ctx, email))
}

// GetByUsername provides a mock function.
func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return userResult(m.Called(ctx, username))
}

// UpdateProfile provides a mock function.
func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// UpdatePassword provides a mock function.
func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// RecordLoginFailure provides a mock function.
func (m *MockUserRepository) RecordLoginFailure(ctx context.Context, id int64, now time.Time) (int, *time.Time, error) {
	args := m.Called(ctx, id, now)
	lockedUntil, _ := args.Get(1).(*time.Time)
	return args.Int(0), lockedUntil, args.Error(2)
}

// ResetLoginFailures provides a mock function.
func (m *MockUserRepository) ResetLoginFailures(ctx context.Context, id int64, now time.Time) error {
	return m.Called(ctx, id, now).Error(0)
}

var _ auth.UserRepository = (*MockUserRepository)(nil)
