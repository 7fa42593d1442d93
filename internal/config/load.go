// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/inkwell/inkwell/internal/xdg"
)

// Environment variables that override the file and flags.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvSecretKey   = "INKWELL_SECRET_KEY"
)

// flagKeys maps command line flag names to config keys.
var flagKeys = map[string]string{
	"addr":         "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"storage":      "storage.driver",
	"database-url": "storage.database_url",
	"sqlite-path":  "storage.sqlite_path",
}

// BindFlags registers the config flags on fs with defaults from Default.
func BindFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("addr", d.HTTP.Addr, "web listen address")
	flags.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	flags.String("log-format", d.Log.Format, "log format (json or text)")
	flags.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	flags.String("storage", d.Storage.Driver, "storage driver (postgres or sqlite)")
	flags.String("database-url", "", "PostgreSQL connection URL (overridden by $DATABASE_URL)")
	flags.String("sqlite-path", d.Storage.SQLitePath, "SQLite database file")
}

// LoadOptions controls Load. The zero value loads defaults, the XDG config
// file if present, and the process environment.
type LoadOptions struct {
	// Path is an explicit config file. It must exist when set.
	Path string
	// Flags are applied over the file. Unchanged flags never override it.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// DefaultPath defaults to xdg.ConfigFile.
	DefaultPath func() (string, error)
}

// defaultsProvider feeds Default() to koanf as YAML.
type defaultsProvider struct{}

func (defaultsProvider) ReadBytes() ([]byte, error) {
	//nolint:wrapcheck // surfaced through Load with a code
	return yamlv3.Marshal(Default())
}

func (defaultsProvider) Read() (map[string]any, error) {
	return nil, errors.New("defaults provider requires a parser")
}

// Load builds a Config from, in increasing precedence: defaults, the config
// file, changed flags, and the DATABASE_URL and INKWELL_SECRET_KEY variables.
// The result is not validated.
func Load(opts LoadOptions) (*Config, string, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.DefaultPath == nil {
		opts.DefaultPath = xdg.ConfigFile
	}

	k := koanf.New(".")
	if err := k.Load(defaultsProvider{}, yaml.Parser()); err != nil {
		return nil, "", oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, "", oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, "", oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, "", oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, "", oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, "", oops.Code("CONFIG_LOAD_FAILED").With("source", "unmarshal").Wrap(err)
	}

	if v := opts.Getenv(EnvDatabaseURL); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := opts.Getenv(EnvSecretKey); v != "" {
		cfg.Auth.SecretKey = v
	}
	return &cfg, path, nil
}

// resolvePath returns the file to load, or "" when there is none.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.Path != "" {
		if _, err := os.Stat(opts.Path); err != nil {
			return "", oops.Code("CONFIG_NOT_FOUND").With("path", opts.Path).Wrap(err)
		}
		return opts.Path, nil
	}
	path, err := opts.DefaultPath()
	if err != nil {
		return "", nil //nolint:nilerr // no home directory means no default file
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}
