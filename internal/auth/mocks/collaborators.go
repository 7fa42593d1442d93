// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/inkwell/inkwell/internal/auth"
)

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// NeedsUpgrade provides a mock function.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// MockAvatarStore is a mock of auth.AvatarStore.
type MockAvatarStore struct {
	mock.Mock
}

// NewMockAvatarStore creates a mock that asserts its expectations on cleanup.
func NewMockAvatarStore(t TestingT) *MockAvatarStore {
	m := &MockAvatarStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Save provides a mock function.
func (m *MockAvatarStore) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	args := m.Called(ctx, originalName, content)
	return args.String(0), args.Error(1)
}

// Remove provides a mock function.
func (m *MockAvatarStore) Remove(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

// MockResetNotifier is a mock of auth.ResetNotifier.
type MockResetNotifier struct {
	mock.Mock
}

// NewMockResetNotifier creates a mock that asserts its expectations on cleanup.
func NewMockResetNotifier(t TestingT) *MockResetNotifier {
	m := &MockResetNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SendPasswordReset provides a mock function.
func (m *MockResetNotifier) SendPasswordReset(ctx context.Context, user *auth.User, token string) error {
	return m.Called(ctx, user, token).Error(0)
}

// MockSessionRevoker is a mock of auth.SessionRevoker.
type MockSessionRevoker struct {
	mock.Mock
}

// NewMockSessionRevoker creates a mock that asserts its expectations on cleanup.
func NewMockSessionRevoker(t TestingT) *MockSessionRevoker {
	m := &MockSessionRevoker{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RevokeUserSessions provides a mock function.
func (m *MockSessionRevoker) RevokeUserSessions(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

var (
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.AvatarStore    = (*MockAvatarStore)(nil)
	_ auth.ResetNotifier  = (*MockResetNotifier)(nil)
	_ auth.SessionRevoker = (*MockSessionRevoker)(nil)
)
