// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package web serves the Inkwell blog over HTTP.
//
// Pages are server-rendered from embedded html/template files. The session
// token travels in the inkwell_session cookie and is resolved to a user once
// per request; guarded routes consult auth.Gate before running their handler.
package web
