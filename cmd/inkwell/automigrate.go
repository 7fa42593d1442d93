// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
)

// EnvAutoMigrate disables startup migrations when set to false or 0.
const EnvAutoMigrate = "INKWELL_DB_AUTO_MIGRATE"

// parseAutoMigrate reads EnvAutoMigrate. Unset and unrecognized values
// enable auto-migration.
func parseAutoMigrate() bool {
	raw := os.Getenv(EnvAutoMigrate)
	switch strings.ToLower(raw) {
	case "", "true", "1":
		return true
	case "false", "0":
		return false
	default:
		slog.Warn("unrecognized value for auto-migrate, defaulting to true",
			"env", EnvAutoMigrate, "value", raw)
		return true
	}
}

// runAutoMigration applies all pending migrations and closes the migrator.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator, connection may leak", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	return nil
}
