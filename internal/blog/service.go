// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package blog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DefaultPageSize is the number of posts per listing page.
const DefaultPageSize = 5

// Page is one page of the post listing.
type Page struct {
	Posts      []PostView
	Number     int
	PageSize   int
	Total      int
	TotalPages int
}

// HasPrev reports whether a previous page exists.
func (p *Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a next page exists.
func (p *Page) HasNext() bool { return p.Number < p.TotalPages }

// Numbers returns the page links to render: the first and last page, one
// page before the current one and two after. Gaps are returned as 0.
func (p *Page) Numbers() []int {
	var out []int
	last := 0
	for n := 1; n <= p.TotalPages; n++ {
		edge := n == 1 || n == p.TotalPages
		near := n >= p.Number-1 && n <= p.Number+2
		if !edge && !near {
			continue
		}
		if last != 0 && n != last+1 {
			out = append(out, 0)
		}
		out = append(out, n)
		last = n
	}
	return out
}

// Service implements post operations.
type Service struct {
	posts    PostRepository
	pageSize int
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new Service.
func NewService(posts PostRepository, opts ...Option) (*Service, error) {
	if posts == nil {
		return nil, oops.Code("BLOG_INVALID_CONFIG").Errorf("post repository is required")
	}
	s := &Service{
		posts:    posts,
		pageSize: DefaultPageSize,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates and stores a post by authorID.
func (s *Service) Create(ctx context.Context, authorID int64, title, content string) (*Post, error) {
	if authorID <= 0 {
		return nil, oops.Code("POST_INVALID_AUTHOR").With("author_id", authorID).Errorf("author is required")
	}
	title = strings.TrimSpace(title)
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	post := &Post{
		Title:     title,
		Content:   content,
		UserID:    authorID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, oops.Code("POST_CREATE_FAILED").With("author_id", authorID).Wrap(err)
	}
	s.logger.Info("post created", "post_id", post.ID, "author_id", authorID)
	return post, nil
}

// Get returns a single post.
func (s *Service) Get(ctx context.Context, id int64) (*PostView, error) {
	if id <= 0 {
		return nil, oops.Code("POST_NOT_FOUND").With("id", id).Wrap(ErrNotFound)
	}
	return s.posts.Get(ctx, id)
}

// List returns page number (1-based) of the newest-first listing. Numbers
// below 1 are treated as 1. A page past the end is not found, except page 1
// of an empty listing.
func (s *Service) List(ctx context.Context, number int) (*Page, error) {
	if number < 1 {
		number = 1
	}

	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, oops.Code("POST_LIST_FAILED").With("operation", "count posts").Wrap(err)
	}
	totalPages := (total + s.pageSize - 1) / s.pageSize
	if number > 1 && number > totalPages {
		return nil, oops.Code("POST_PAGE_NOT_FOUND").
			With("page", number).
			With("total_pages", totalPages).
			Wrap(ErrNotFound)
	}

	posts, err := s.posts.List(ctx, s.pageSize, (number-1)*s.pageSize)
	if err != nil {
		return nil, oops.Code("POST_LIST_FAILED").With("operation", "list posts").Wrap(err)
	}
	return &Page{
		Posts:      posts,
		Number:     number,
		PageSize:   s.pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
