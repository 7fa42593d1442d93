// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/internal/store"
	"github.com/inkwell/inkwell/internal/store/sqlite"
	"github.com/inkwell/inkwell/internal/xdg"
)

// Migrator is the part of store.Migrator the migrate command drives.
type Migrator interface {
	AutoMigrator
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
}

// MigrateDeps contains injectable dependencies for the migrate command.
// All fields with nil values will use their default implementations.
type MigrateDeps struct {
	// MigratorFactory creates a PostgreSQL migrator.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// SQLiteOpener opens a SQLite database, applying its schema.
	// Default: sqlite.Open
	SQLiteOpener func(ctx context.Context, path string) (io.Closer, error)

	// DataDirGetter returns the directory relative data paths resolve against.
	// Default: xdg.DataDir
	DataDirGetter func() (string, error)
}

func (d *MigrateDeps) withDefaults() *MigrateDeps {
	out := MigrateDeps{}
	if d != nil {
		out = *d
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if out.SQLiteOpener == nil {
		out.SQLiteOpener = func(ctx context.Context, path string) (io.Closer, error) {
			return sqlite.Open(ctx, path)
		}
	}
	if out.DataDirGetter == nil {
		out.DataDirGetter = xdg.DataDir
	}
	return &out
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(nil)
}

func newMigrateCmd(deps *MigrateDeps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the database schema. With no subcommand, apply all pending
migrations. PostgreSQL is versioned; SQLite only supports "up", which
creates any missing tables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	})

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Long: `Roll back the latest migration. With --all, roll back every migration,
dropping all tables and their data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, "down", func(m Migrator) error {
				if all {
					cmd.Println("Rolling back all migrations...")
					return m.Down()
				}
				cmd.Println("Rolling back one migration...")
				return m.Steps(-1)
			})
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, deps, "status", func(m Migrator) error {
				return printMigrationStatus(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Mark VERSION as the current schema version and clear the dirty flag,
without running any migration. Use it after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, "force", func(m Migrator) error {
				cmd.Printf("Forcing version %d...\n", version)
				return m.Force(version)
			})
		},
	})

	return cmd
}

// migrateTarget loads the config and validates its storage section.
func migrateTarget(cmd *cobra.Command, deps *MigrateDeps) (*config.Config, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, oops.With("operation", "validate storage config").Wrap(err)
	}
	if cfg.Storage.Driver == config.DriverSQLite {
		// Avatars are not touched here.
		cfg.Avatar.Backend = ""
		if err := resolveDataPaths(cfg, deps.DataDirGetter); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runMigrateUp(cmd *cobra.Command, deps *MigrateDeps) error {
	cfg, err := migrateTarget(cmd, deps)
	if err != nil {
		return err
	}

	if cfg.Storage.Driver == config.DriverSQLite {
		cmd.Printf("Creating SQLite schema in %s...\n", cfg.Storage.SQLitePath)
		db, err := deps.SQLiteOpener(cmd.Context(), cfg.Storage.SQLitePath)
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("path", cfg.Storage.SQLitePath).Wrap(err)
		}
		if err := db.Close(); err != nil {
			slog.Warn("error closing sqlite database", "error", err)
		}
		cmd.Println("Schema is up to date")
		return nil
	}

	return runWithMigrator(cmd, cfg, deps, func(m Migrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
}

// withMigrator runs fn against a PostgreSQL migrator. SQLite has no
// versioned schema, so only up is supported there.
func withMigrator(cmd *cobra.Command, deps *MigrateDeps, action string, fn func(Migrator) error) error {
	cfg, err := migrateTarget(cmd, deps)
	if err != nil {
		return err
	}
	if cfg.Storage.Driver == config.DriverSQLite {
		return oops.Code("MIGRATE_UNSUPPORTED").
			With("driver", cfg.Storage.Driver).
			With("action", action).
			Errorf("migrate %s requires the postgres driver", action)
	}
	return runWithMigrator(cmd, cfg, deps, fn)
}

func runWithMigrator(cmd *cobra.Command, cfg *config.Config, deps *MigrateDeps, fn func(Migrator) error) error {
	cmd.Println("Connecting to database...")
	m, err := deps.MigratorFactory(cfg.Storage.DatabaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := fn(m); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	return nil
}

func printMigrationStatus(cmd *cobra.Command, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}

	cmd.Printf("Current version: %d", st.Version)
	if st.Dirty {
		cmd.Print(" (dirty)")
	}
	cmd.Println()

	for _, group := range []struct {
		label      string
		migrations []store.Migration
	}{
		{"Applied", st.Applied},
		{"Pending", st.Pending},
	} {
		cmd.Printf("%s: %d\n", group.label, len(group.migrations))
		for _, mig := range group.migrations {
			cmd.Printf("  %s\n", mig)
		}
	}
	return nil
}

// parseForceVersion reads a leading integer from s. Anything after the
// number is ignored.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer: %v", err)
	}
	return version, nil
}
