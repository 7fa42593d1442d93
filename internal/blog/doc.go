// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package blog holds posts: creation by an authenticated author, the
// paginated newest-first listing and single post lookup.
package blog
