// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package postgres implements blog.PostRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/blog"
	"github.com/inkwell/inkwell/internal/store"
)

const postViewSelect = `
	SELECT p.id, p.title, p.content, p.user_id, p.created_at, u.username, u.image_file
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// PostRepository implements blog.PostRepository using PostgreSQL.
type PostRepository struct {
	db store.Querier
}

// NewPostRepository creates a new PostRepository.
func NewPostRepository(db store.Querier) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts post and sets its ID.
func (r *PostRepository) Create(ctx context.Context, post *blog.Post) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO posts (title, content, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, post.Title, post.Content, post.UserID, post.CreatedAt).Scan(&post.ID)
	if store.ForeignKeyViolation(err) {
		return oops.Code("POST_INVALID_AUTHOR").With("author_id", post.UserID).Wrap(err)
	}
	if err != nil {
		return oops.With("operation", "insert post").With("author_id", post.UserID).Wrap(err)
	}
	return nil
}

// Get returns a post joined with its author.
func (r *PostRepository) Get(ctx context.Context, id int64) (*blog.PostView, error) {
	view, err := scanPostView(r.db.QueryRow(ctx, postViewSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("POST_NOT_FOUND").With("id", id).Wrap(blog.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get post").With("id", id).Wrap(err)
	}
	return view, nil
}

// List returns posts newest first.
func (r *PostRepository) List(ctx context.Context, limit, offset int) ([]blog.PostView, error) {
	rows, err := r.db.Query(ctx,
		postViewSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, oops.With("operation", "list posts").Wrap(err)
	}
	defer rows.Close()

	var views []blog.PostView
	for rows.Next() {
		view, err := scanPostView(rows)
		if err != nil {
			return nil, oops.With("operation", "scan post").Wrap(err)
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate posts").Wrap(err)
	}
	return views, nil
}

// Count returns the number of posts.
func (r *PostRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, oops.With("operation", "count posts").Wrap(err)
	}
	return n, nil
}

func scanPostView(row pgx.Row) (*blog.PostView, error) {
	var v blog.PostView
	err := row.Scan(
		&v.ID,
		&v.Title,
		&v.Content,
		&v.UserID,
		&v.CreatedAt,
		&v.Author.Username,
		&v.Author.ImageFile,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	return &v, nil
}

// Compile-time interface check.
var _ blog.PostRepository = (*PostRepository)(nil)
