// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/inkwell/inkwell/internal/auth/authtest"
	"github.com/inkwell/inkwell/internal/blog/blogtest"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/store"
)

type mockObservabilityServer struct {
	startFunc   func() (<-chan error, error)
	stopCalled  atomic.Bool
	metrics     *observability.Metrics
	checks      observability.Checks
	startCalled atomic.Bool
}

func (m *mockObservabilityServer) Start() (<-chan error, error) {
	m.startCalled.Store(true)
	if m.startFunc != nil {
		return m.startFunc()
	}
	return make(chan error, 1), nil
}

func (m *mockObservabilityServer) Stop(context.Context) error {
	m.stopCalled.Store(true)
	return nil
}

func (m *mockObservabilityServer) Addr() string { return "127.0.0.1:9100" }

func (m *mockObservabilityServer) Metrics() *observability.Metrics { return m.metrics }

type mockWebServer struct {
	startFunc  func() (<-chan error, error)
	running    atomic.Bool
	stopCalled atomic.Bool
}

func (m *mockWebServer) Start() (<-chan error, error) {
	if m.startFunc != nil {
		ch, err := m.startFunc()
		if err == nil {
			m.running.Store(true)
		}
		return ch, err
	}
	m.running.Store(true)
	return make(chan error, 1), nil
}

func (m *mockWebServer) Stop(context.Context) error {
	m.stopCalled.Store(true)
	m.running.Store(false)
	return nil
}

func (m *mockWebServer) Addr() string { return "127.0.0.1:8080" }

func (m *mockWebServer) Running() bool { return m.running.Load() }

// memoryStorage is a Storage over the in-memory test repositories.
type memoryStorage struct {
	mu      sync.Mutex
	closed  bool
	pingErr error
}

func (s *memoryStorage) storage() *Storage {
	users := authtest.NewUserStore()
	return &Storage{
		Users:    users,
		Sessions: authtest.NewSessionStore(),
		Posts:    blogtest.NewPostStore(users),
		Ping: func(context.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.pingErr
		},
		Close: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.closed = true
		},
	}
}

func (s *memoryStorage) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type mockMigrator struct {
	upCalled    bool
	downCalled  bool
	closeCalled bool
	steps       []int
	forced      []int
	version     uint
	dirty       bool
	applied     []store.Migration
	pending     []store.Migration
	upError     error
	closeError  error
}

func (m *mockMigrator) Up() error {
	m.upCalled = true
	return m.upError
}

func (m *mockMigrator) Down() error {
	m.downCalled = true
	return nil
}

func (m *mockMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return nil
}


func (m *mockMigrator) Force(version int) error {
	m.forced = append(m.forced, version)
	return nil
}

func (m *mockMigrator) Status() (store.Status, error) {
	return store.Status{Version: m.version, Dirty: m.dirty, Applied: m.applied, Pending: m.pending}, nil
}

func (m *mockMigrator) Close() error {
	m.closeCalled = true
	return m.closeError
}
