// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inkwell/inkwell/internal/config"
	"github.com/inkwell/inkwell/pkg/errutil"
)

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the config file JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err //nolint:wrapcheck // already coded
			}
			_, err = cmd.OutOrStdout().Write(append(schema, '\n'))
			return err //nolint:wrapcheck // stdout write
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
			}
			if path != "" {
				cmd.Printf("# loaded from %s\n", path)
			}
			cmd.Print(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without starting anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				if errutil.HasCode(err, "CONFIG_SCHEMA_VIOLATION") {
					cmd.PrintErrln(config.FormatSchemaError(err))
				}
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err //nolint:wrapcheck // already coded
			}
			if path == "" {
				path = "defaults"
			}
			cmd.Printf("Configuration is valid (%s)\n", path)
			return nil
		},
	})

	return cmd
}
