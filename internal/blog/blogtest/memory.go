// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package blogtest provides an in-memory blog.PostRepository for tests.
package blogtest

import (
	"context"
	"slices"
	"sync"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/blog"
)

// Authors resolves post authors.
type Authors interface {
	GetByID(ctx context.Context, id int64) (*auth.User, error)
}

// PostStore is an in-memory blog.PostRepository.
type PostStore struct {
	mu      sync.Mutex
	authors Authors
	nextID  int64
	posts   []blog.Post
}

// NewPostStore creates an empty PostStore that joins authors from authors.
func NewPostStore(authors Authors) *PostStore {
	return &PostStore{authors: authors}
}

// Create stores a copy of post and assigns its ID.
func (s *PostStore) Create(ctx context.Context, post *blog.Post) error {
	if _, err := s.authors.GetByID(ctx, post.UserID); err != nil {
		return oops.Code("POST_INVALID_AUTHOR").With("author_id", post.UserID).Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	post.ID = s.nextID
	s.posts = append(s.posts, *post)
	return nil
}

func (s *PostStore) view(ctx context.Context, p blog.Post) blog.PostView {
	v := blog.PostView{Post: p}
	if u, err := s.authors.GetByID(ctx, p.UserID); err == nil {
		v.Author = blog.Author{Username: u.Username, ImageFile: u.ImageFile}
	}
	return v
}

// Get returns a post with its author.
func (s *PostStore) Get(ctx context.Context, id int64) (*blog.PostView, error) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.posts, func(p blog.Post) bool { return p.ID == id })
	var p blog.Post
	if idx >= 0 {
		p = s.posts[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		return nil, oops.Code("POST_NOT_FOUND").With("id", id).Wrap(blog.ErrNotFound)
	}
	v := s.view(ctx, p)
	return &v, nil
}

// List returns posts newest first.
func (s *PostStore) List(ctx context.Context, limit, offset int) ([]blog.PostView, error) {
	s.mu.Lock()
	sorted := slices.Clone(s.posts)
	s.mu.Unlock()

	slices.SortFunc(sorted, func(a, b blog.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	if offset >= len(sorted) {
		return nil, nil
	}
	sorted = sorted[offset:min(offset+limit, len(sorted))]

	views := make([]blog.PostView, 0, len(sorted))
	for _, p := range sorted {
		views = append(views, s.view(ctx, p))
	}
	return views, nil
}

// Count returns the number of posts.
func (s *PostStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts), nil
}

var _ blog.PostRepository = (*PostStore)(nil)
