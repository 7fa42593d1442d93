// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/blog"
)

const postViewSelect = `
	SELECT p.id, p.title, p.content, p.user_id, p.created_at, u.username, u.image_file
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// PostRepository implements blog.PostRepository on SQLite.
type PostRepository struct {
	db *sql.DB
}

// Create inserts post and sets its ID.
func (r *PostRepository) Create(ctx context.Context, post *blog.Post) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (title, content, user_id, created_at) VALUES (?, ?, ?, ?)
	`, post.Title, post.Content, post.UserID, toUnix(post.CreatedAt))
	if foreignKeyViolation(err) {
		return oops.Code("POST_INVALID_AUTHOR").With("author_id", post.UserID).Wrap(err)
	}
	if err != nil {
		return oops.With("operation", "insert post").With("author_id", post.UserID).Wrap(err)
	}
	if post.ID, err = res.LastInsertId(); err != nil {
		return oops.With("operation", "insert post").Wrap(err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPostView(row scanner) (*blog.PostView, error) {
	var (
		v         blog.PostView
		createdAt int64
	)
	if err := row.Scan(&v.ID, &v.Title, &v.Content, &v.UserID, &createdAt,
		&v.Author.Username, &v.Author.ImageFile); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	v.CreatedAt = fromUnix(createdAt)
	return &v, nil
}

// Get returns a post joined with its author.
func (r *PostRepository) Get(ctx context.Context, id int64) (*blog.PostView, error) {
	view, err := scanPostView(r.db.QueryRowContext(ctx, postViewSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("POST_NOT_FOUND").With("id", id).Wrap(blog.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get post").With("id", id).Wrap(err)
	}
	return view, nil
}

// List returns posts newest first.
func (r *PostRepository) List(ctx context.Context, limit, offset int) ([]blog.PostView, error) {
	rows, err := r.db.QueryContext(ctx,
		postViewSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`, limit, offset)
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
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM posts`).Scan(&n); err != nil {
		return 0, oops.With("operation", "count posts").Wrap(err)
	}
	return n, nil
}

var _ blog.PostRepository = (*PostRepository)(nil)
