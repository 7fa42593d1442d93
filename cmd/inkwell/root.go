// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Inkwell CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Inkwell - a small multi-user blog",
		Long: `Inkwell is a small multi-user blog with registration, login sessions,
password reset by email and profile pictures, backed by PostgreSQL or SQLite.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/inkwell/config.yaml)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig loads the configuration for cmd from --config, its flags and
// the environment. The result is not validated.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	//nolint:wrapcheck // config errors already carry codes
	return config.Load(config.LoadOptions{Path: configFile, Flags: cmd.Flags()})
}
