// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// T is the subset of testing.T the assertions need. GinkgoT satisfies it.
type T interface {
	require.TestingT
	Helper()
}

// AssertErrorCode fails the test unless err is an oops error carrying code.
func AssertErrorCode(t T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext fails the test unless err carries key=value in its oops
// context. Context set at any wrapping level counts.
func AssertErrorContext(t T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	got, ok := oopsErr.Context()[key]
	require.True(t, ok, "context key %q missing from %v", key, oopsErr.Context())
	assert.Equal(t, value, got)
}
