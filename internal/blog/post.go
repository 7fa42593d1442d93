// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package blog

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a post or page does not exist.
var ErrNotFound = errors.New("not found")

// Validation limits.
const (
	MaxTitleLength   = 100
	MaxContentLength = 20000
)

// Post is an immutable blog entry.
type Post struct {
	ID        int64
	Title     string
	Content   string
	UserID    int64
	CreatedAt time.Time
}

// Author is the part of a user shown next to their posts.
type Author struct {
	Username  string
	ImageFile string
}

// PostView is a post joined with its author.
type PostView struct {
	Post
	Author Author
}

// PostRepository persists posts.
type PostRepository interface {
	// Create inserts post and sets its ID.
	Create(ctx context.Context, post *Post) error

	// Get returns a post with its author.
	Get(ctx context.Context, id int64) (*PostView, error)

	// List returns up to limit posts newest first, skipping offset.
	List(ctx context.Context, limit, offset int) ([]PostView, error)

	// Count returns the total number of posts.
	Count(ctx context.Context) (int, error)
}

// ValidateTitle checks that a title is non-blank and at most MaxTitleLength characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return oops.Code("POST_INVALID_TITLE").Errorf("title cannot be empty")
	}
	if !utf8.ValidString(title) {
		return oops.Code("POST_INVALID_TITLE").Errorf("title must be valid UTF-8")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return oops.Code("POST_INVALID_TITLE").
			With("max", MaxTitleLength).
			Errorf("title must be at most %d characters", MaxTitleLength)
	}
	if strings.ContainsFunc(title, unicode.IsControl) {
		return oops.Code("POST_INVALID_TITLE").Errorf("title cannot contain control characters")
	}
	return nil
}

// ValidateContent checks that content is non-blank and within MaxContentLength.
// Newlines and tabs are allowed.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return oops.Code("POST_INVALID_CONTENT").Errorf("content cannot be empty")
	}
	if !utf8.ValidString(content) {
		return oops.Code("POST_INVALID_CONTENT").Errorf("content must be valid UTF-8")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return oops.Code("POST_INVALID_CONTENT").
			With("max", MaxContentLength).
			Errorf("content must be at most %d characters", MaxContentLength)
	}
	for _, r := range content {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return oops.Code("POST_INVALID_CONTENT").Errorf("content cannot contain control characters")
		}
	}
	return nil
}
