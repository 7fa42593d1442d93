// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Command gen-schema writes the JSON Schema for inkwell's config.yaml so
// editors can validate it. With -check it only reports whether the
// committed schema is stale.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/inkwell/inkwell/internal/config"
)

const defaultOut = "schemas/config.schema.json"

var errStale = errors.New("config schema is out of date; run gen-schema")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "gen-schema: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gen-schema", flag.ContinueOnError)
	out := fs.String("o", defaultOut, "path of the config schema file")
	check := fs.Bool("check", false, "fail if the schema file differs from the config struct")
	if err := fs.Parse(args); err != nil {
		return err
	}

	schema, err := config.GenerateSchema()
	if err != nil {
		return fmt.Errorf("reflect config schema: %w", err)
	}
	schema = append(schema, '\n')

	if *check {
		current, err := os.ReadFile(*out)
		if err != nil {
			return fmt.Errorf("read config schema: %w", err)
		}
		if !bytes.Equal(current, schema) {
			return fmt.Errorf("%s: %w", *out, errStale)
		}
		fmt.Fprintf(stdout, "%s is up to date\n", *out)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o750); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	if err := os.WriteFile(*out, schema, 0o600); err != nil {
		return fmt.Errorf("write config schema: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", *out)
	return nil
}
