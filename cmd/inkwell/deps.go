// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/avatar"
	"github.com/inkwell/inkwell/internal/blog"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/mail"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/web"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StorageOpener opens the configured database backend.
	// Default: openStorage
	StorageOpener func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error)

	// MigratorFactory creates a migrator for auto-migration on startup.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// AutoMigrateGetter reports whether to migrate PostgreSQL on startup.
	// Default: parseAutoMigrate
	AutoMigrateGetter func() bool

	// BlobStoreFactory creates the avatar blob store.
	// Default: newBlobStore
	BlobStoreFactory func(ctx context.Context, cfg config.AvatarConfig) (avatar.BlobStore, error)

	// MailSenderFactory creates the outbound mail sender.
	// Default: newMailSender
	MailSenderFactory func(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, checks observability.Checks, logger *slog.Logger) ObservabilityServer

	// WebServerFactory creates the blog HTTP server.
	// Default: web.NewServer
	WebServerFactory func(cfg web.Config, deps web.Deps) (WebServer, error)

	// DataDirGetter returns the directory relative data paths resolve against.
	// Default: xdg.DataDir
	DataDirGetter func() (string, error)
}

// Storage is an opened database backend.
type Storage struct {
	Users    auth.UserRepository
	Sessions auth.WebSessionRepository
	Posts    blog.PostRepository
	// Ping checks the database is reachable.
	Ping func(ctx context.Context) error
	// Close releases the connection pool.
	Close func()
}

// AutoMigrator is the part of store.Migrator used on startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer interface wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Running() bool
}
