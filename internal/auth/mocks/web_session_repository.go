// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/inkwell/inkwell/internal/auth"
)

// MockWebSessionRepository is a mock of auth.WebSessionRepository.
type MockWebSessionRepository struct {
	mock.Mock
}

// NewMockWebSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockWebSessionRepository(t TestingT) *MockWebSessionRepository {
	m := &MockWebSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockWebSessionRepository) Create(ctx context.Context, session *auth.WebSession) error {
	return m.Called(ctx, session).Error(0)
}

// GetByTokenHash provides a mock function.
func (m *MockWebSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.WebSession, error) {
	args := m.Called(ctx, tokenHash)
	session, _ := args.Get(0).(*auth.WebSession)
	return session, args.Error(1)
}

// UpdateLastSeen provides a mock function.
func (m *MockWebSessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	return m.Called(ctx, id, lastSeen).Error(0)
}

// Delete provides a mock function.
func (m *MockWebSessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// DeleteByUser provides a mock function.
func (m *MockWebSessionRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

// DeleteExpired provides a mock function.
func (m *MockWebSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

var _ auth.WebSessionRepository = (*MockWebSessionRepository)(nil)
