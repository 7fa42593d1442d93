// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package sqlite is a single-node storage backend on the pure-Go SQLite
// engine. It implements the user, session and post repositories.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

// DB is an open SQLite database with the Inkwell schema applied.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. path may be ":memory:".
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, oops.Code("STORE_CONFIG_INVALID").With("path", path).Wrap(err)
	}
	// One connection serializes writers and keeps a :memory: database alive.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, oops.Code("STORE_SCHEMA_FAILED").With("path", path).Wrap(err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database is usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Users returns the user repository.
func (d *DB) Users() *UserRepository { return &UserRepository{db: d.db} }

// Sessions returns the web session repository.
func (d *DB) Sessions() *WebSessionRepository { return &WebSessionRepository{db: d.db} }

// Posts returns the post repository.
func (d *DB) Posts() *PostRepository { return &PostRepository{db: d.db} }

// uniqueViolation returns the "table.column" named by a unique constraint
// failure.
func uniqueViolation(err error) (column string, ok bool) {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) || sqlErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return "", false
	}
	msg := sqlErr.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed: "); i >= 0 {
		column = msg[i+len("UNIQUE constraint failed: "):]
		if j := strings.IndexAny(column, " ,("); j >= 0 {
			column = column[:j]
		}
	}
	return column, true
}

func foreignKeyViolation(err error) bool {
	var sqlErr *sqlite.Error
	return errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toUnix(*t), Valid: true}
}

func fromNullUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnix(n.Int64)
	return &t
}
