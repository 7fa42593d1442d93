// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/avatar"
	"github.com/inkwell/inkwell/internal/blog"
	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/logging"
	"github.com/inkwell/inkwell/internal/mail"
	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/internal/store"
	"github.com/inkwell/inkwell/internal/web"
	"github.com/inkwell/inkwell/internal/xdg"
)

const (
	serviceName     = "inkwell"
	shutdownTimeout = 5 * time.Second
)

var errWebNotServing = oops.Code("WEB_NOT_SERVING").Errorf("web server is not serving")

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the blog web server",
		Long: `Start the blog web server. It connects to the configured database,
applies pending PostgreSQL migrations, serves the site and, unless disabled,
metrics and health probes on a separate address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, path, cmd, nil)
		},
	}
}

// runServeWithDeps runs the web server until a signal arrives, ctx is
// cancelled or a server fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, configPath string, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	if deps.StorageOpener == nil {
		deps.StorageOpener = openStorage
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if deps.AutoMigrateGetter == nil {
		deps.AutoMigrateGetter = parseAutoMigrate
	}
	if deps.BlobStoreFactory == nil {
		deps.BlobStoreFactory = newBlobStore
	}
	if deps.MailSenderFactory == nil {
		deps.MailSenderFactory = newMailSender
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, checks observability.Checks, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, checks, logger)
		}
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = func(cfg web.Config, d web.Deps) (WebServer, error) {
			return web.NewServer(cfg, d)
		}
	}
	if deps.DataDirGetter == nil {
		deps.DataDirGetter = xdg.DataDir
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate config").Wrap(err)
	}

	logger, err := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})
	if err != nil {
		return oops.With("operation", "set up logging").Wrap(err)
	}

	if err := resolveDataPaths(cfg, deps.DataDirGetter); err != nil {
		return err
	}

	logger.Info("starting inkwell",
		"addr", cfg.HTTP.Addr,
		"storage", cfg.Storage.Driver,
		"config_file", configPath,
	)

	if cfg.Storage.Driver == config.DriverPostgres {
		if deps.AutoMigrateGetter() {
			if err := runAutoMigration(cfg.Storage.DatabaseURL, deps.MigratorFactory); err != nil {
				return err
			}
			logger.Info("database migrations applied")
		} else {
			logger.Info("auto-migration disabled", "env", EnvAutoMigrate)
		}
	}

	storage, err := deps.StorageOpener(ctx, cfg.Storage, logger)
	if err != nil {
		return oops.With("operation", "open storage").Wrap(err)
	}
	defer storage.Close()

	logger.Info("connected to database", "driver", cfg.Storage.Driver)

	blobs, err := deps.BlobStoreFactory(ctx, cfg.Avatar)
	if err != nil {
		return oops.With("operation", "open avatar store").Wrap(err)
	}
	sender, err := deps.MailSenderFactory(cfg.Mail, logger)
	if err != nil {
		return oops.With("operation", "create mail sender").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var webServer WebServer
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, readinessChecks(func() WebServer { return webServer }, storage), logger)
		metrics = obsServer.Metrics()
	}

	webDeps, authSvc, err := buildServices(cfg, storage, blobs, sender, logger)
	if err != nil {
		return err
	}
	webDeps.Metrics = metrics

	webServer, err = deps.WebServerFactory(web.Config{
		Addr:           cfg.HTTP.Addr,
		SecureCookies:  cfg.HTTP.SecureCookies,
		MaxUploadBytes: cfg.Avatar.MaxUploadBytes,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
	}, webDeps)
	if err != nil {
		return oops.With("operation", "create web server").Wrap(err)
	}

	webErrChan, err := webServer.Start()
	if err != nil {
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrChan, "web")
	logger.Info("web server listening", "addr", webServer.Addr())

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if stopErr := webServer.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop web server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runSweeper(ctx, cfg.Auth.SweepInterval, authSvc, metrics, logger)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Inkwell started")
	logger.Info("inkwell ready", "addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	cancel()
	<-sweepDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// buildServices wires the domain services over storage. The returned deps
// have no metrics set.
func buildServices(
	cfg *config.Config,
	storage *Storage,
	blobs avatar.BlobStore,
	sender mail.Sender,
	logger *slog.Logger,
) (web.Deps, *auth.Service, error) {
	hasher := auth.NewMultiHasher(auth.NewArgon2idHasher())

	authSvc, err := auth.NewAuthService(storage.Users, storage.Sessions, hasher,
		auth.WithSessionTTL(cfg.Auth.SessionTTL, cfg.Auth.RememberTTL),
		auth.WithLogger(logger))
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "auth").Wrap(err)
	}

	avatars, err := avatar.NewService(blobs,
		avatar.WithMaxUploadBytes(cfg.Avatar.MaxUploadBytes),
		avatar.WithLogger(logger))
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "avatar").Wrap(err)
	}
	accounts, err := auth.NewAccountService(storage.Users, avatars, logger)
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "account").Wrap(err)
	}

	tokens, err := auth.NewResetTokenService([]byte(cfg.Auth.SecretKey), auth.WithResetTTL(cfg.Auth.ResetTTL))
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "reset tokens").Wrap(err)
	}
	mailer, err := mail.NewResetMailer(sender, cfg.Mail.From, cfg.HTTP.BaseURL)
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "reset mailer").Wrap(err)
	}
	resets, err := auth.NewPasswordResetService(storage.Users, tokens, hasher, authSvc, mailer, logger)
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "password reset").Wrap(err)
	}

	gate, err := auth.NewGate(auth.DefaultLoginPath, cfg.Auth.NextAllowlist)
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "gate").Wrap(err)
	}

	posts, err := blog.NewService(storage.Posts,
		blog.WithPageSize(cfg.Blog.PageSize),
		blog.WithLogger(logger))
	if err != nil {
		return web.Deps{}, nil, oops.With("service", "blog").Wrap(err)
	}

	return web.Deps{
		Auth:     authSvc,
		Accounts: accounts,
		Resets:   resets,
		Gate:     gate,
		Blog:     posts,
		Avatars:  avatars,
		Logger:   logger,
	}, authSvc, nil
}

// readinessChecks probes the database and the blog listener. current is
// read on every probe since the web server is built after the observability
// server.
func readinessChecks(current func() WebServer, storage *Storage) observability.Checks {
	return observability.Checks{
		"database": storage.Ping,
		"web": func(context.Context) error {
			if srv := current(); srv == nil || !srv.Running() {
				return errWebNotServing
			}
			return nil
		},
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
