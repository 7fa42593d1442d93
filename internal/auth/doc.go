// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package auth provides accounts, password hashing, web sessions and
// password reset for Inkwell.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with validated username and email
//   - NewWebSession - creates a WebSession with validated user and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
//
// # Services
//
//   - Service - registration, login, logout, current identity
//   - AccountService - profile and avatar updates
//   - ResetTokenService - stateless signed reset tokens
//   - PasswordResetService - password reset flow
//   - Gate - route-level identity checks and safe post-login redirects
//
// Services are created with New* constructors that validate dependencies.
package auth
