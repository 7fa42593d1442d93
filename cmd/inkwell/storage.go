// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/samber/oops"

	authpg "github.com/inkwell/inkwell/internal/auth/postgres"
	"github.com/inkwell/inkwell/internal/avatar"
	blogpg "github.com/inkwell/inkwell/internal/blog/postgres"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/mail"
	"github.com/inkwell/inkwell/internal/store"
	"github.com/inkwell/inkwell/internal/store/sqlite"
	"github.com/inkwell/inkwell/internal/xdg"
)

const memoryDatabase = ":memory:"

// openStorage connects to PostgreSQL or opens the SQLite file named by cfg.
func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{
			MaxConns:    cfg.MaxConns,
			MaxAttempts: cfg.ConnectAttempts,
			Logger:      logger,
		})
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).Wrap(err)
		}
		return &Storage{
			Users:    authpg.NewUserRepository(pool),
			Sessions: authpg.NewWebSessionRepository(pool),
			Posts:    blogpg.NewPostRepository(pool),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).With("path", cfg.SQLitePath).Wrap(err)
		}
		return &Storage{
			Users:    db.Users(),
			Sessions: db.Sessions(),
			Posts:    db.Posts(),
			Ping:     db.Ping,
			Close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("error closing sqlite database", "error", err)
				}
			},
		}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Driver).Errorf("unknown storage driver")
	}
}

// newBlobStore creates the avatar store selected by cfg.
func newBlobStore(ctx context.Context, cfg config.AvatarConfig) (avatar.BlobStore, error) {
	switch cfg.Backend {
	case config.AvatarFS:
		//nolint:wrapcheck // avatar errors already carry codes
		return avatar.NewFSStore(cfg.Dir)
	case config.AvatarS3:
		//nolint:wrapcheck // avatar errors already carry codes
		return avatar.NewS3Store(ctx, avatar.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	default:
		return nil, oops.Code("CONFIG_INVALID").With("backend", cfg.Backend).Errorf("unknown avatar backend")
	}
}

// newMailSender creates the mail sender selected by cfg.
func newMailSender(cfg config.MailConfig, logger *slog.Logger) (mail.Sender, error) {
	switch cfg.Backend {
	case config.MailLog:
		return mail.NewLogSender(logger), nil
	case config.MailSMTP:
		//nolint:wrapcheck // mail errors already carry codes
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			ImplicitTLS: cfg.SMTP.ImplicitTLS,
		})
	default:
		return nil, oops.Code("CONFIG_INVALID").With("backend", cfg.Backend).Errorf("unknown mail backend")
	}
}

// resolveDataPaths rewrites the relative SQLite path and avatar directory
// to live under the data directory, creating it when needed.
func resolveDataPaths(cfg *config.Config, dataDir func() (string, error)) error {
	needsSQLite := cfg.Storage.Driver == config.DriverSQLite &&
		cfg.Storage.SQLitePath != memoryDatabase && !filepath.IsAbs(cfg.Storage.SQLitePath)
	needsAvatars := cfg.Avatar.Backend == config.AvatarFS && !filepath.IsAbs(cfg.Avatar.Dir)
	if !needsSQLite && !needsAvatars {
		return nil
	}

	dir, err := dataDir()
	if err != nil {
		return oops.Code("DATA_DIR_FAILED").Wrap(err)
	}
	if err := xdg.EnsureDir(dir); err != nil {
		return oops.Code("DATA_DIR_FAILED").With("dir", dir).Wrap(err)
	}
	if needsSQLite {
		cfg.Storage.SQLitePath = filepath.Join(dir, cfg.Storage.SQLitePath)
	}
	if needsAvatars {
		cfg.Avatar.Dir = filepath.Join(dir, cfg.Avatar.Dir)
	}
	return nil
}
