// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package config defines the Inkwell configuration and loads it from
// defaults, a YAML file, command line flags and the environment.
package config

import (
	"net/url"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/internal/logging"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Avatar backends.
const (
	AvatarFS = "fs"
	AvatarS3 = "s3"
)

// Mail backends.
const (
	MailLog  = "log"
	MailSMTP = "smtp"
)

// Config is the complete process configuration.
type Config struct {
	Log     LogConfig     `koanf:"log" json:"log,omitempty" yaml:"log"`
	HTTP    HTTPConfig    `koanf:"http" json:"http,omitempty" yaml:"http"`
	Metrics MetricsConfig `koanf:"metrics" json:"metrics,omitempty" yaml:"metrics"`
	Storage StorageConfig `koanf:"storage" json:"storage,omitempty" yaml:"storage"`
	Auth    AuthConfig    `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	Blog    BlogConfig    `koanf:"blog" json:"blog,omitempty" yaml:"blog"`
	Avatar  AvatarConfig  `koanf:"avatar" json:"avatar,omitempty" yaml:"avatar"`
	Mail    MailConfig    `koanf:"mail" json:"mail,omitempty" yaml:"mail"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// HTTPConfig configures the web listener.
type HTTPConfig struct {
	Addr          string        `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
	BaseURL       string        `koanf:"base_url" json:"base_url,omitempty" yaml:"base_url" jsonschema:"description=Externally visible root URL used in emailed links"`
	SecureCookies bool          `koanf:"secure_cookies" json:"secure_cookies,omitempty" yaml:"secure_cookies"`
	ReadTimeout   time.Duration `koanf:"read_timeout" json:"read_timeout,omitempty" yaml:"read_timeout" jsonschema:"type=string"`
	WriteTimeout  time.Duration `koanf:"write_timeout" json:"write_timeout,omitempty" yaml:"write_timeout" jsonschema:"type=string"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
}

// StorageConfig selects and configures the database.
type StorageConfig struct {
	Driver          string `koanf:"driver" json:"driver,omitempty" yaml:"driver" jsonschema:"enum=postgres,enum=sqlite"`
	DatabaseURL     string `koanf:"database_url" json:"database_url,omitempty" yaml:"database_url"`
	SQLitePath      string `koanf:"sqlite_path" json:"sqlite_path,omitempty" yaml:"sqlite_path"`
	MaxConns        int32  `koanf:"max_conns" json:"max_conns,omitempty" yaml:"max_conns" jsonschema:"minimum=1"`
	ConnectAttempts uint64 `koanf:"connect_attempts" json:"connect_attempts,omitempty" yaml:"connect_attempts" jsonschema:"minimum=1"`
}

// AuthConfig configures sessions, reset tokens and redirects.
type AuthConfig struct {
	SecretKey     string        `koanf:"secret_key" json:"secret_key,omitempty" yaml:"secret_key"`
	SessionTTL    time.Duration `koanf:"session_ttl" json:"session_ttl,omitempty" yaml:"session_ttl" jsonschema:"type=string"`
	RememberTTL   time.Duration `koanf:"remember_ttl" json:"remember_ttl,omitempty" yaml:"remember_ttl" jsonschema:"type=string"`
	ResetTTL      time.Duration `koanf:"reset_ttl" json:"reset_ttl,omitempty" yaml:"reset_ttl" jsonschema:"type=string"`
	SweepInterval time.Duration `koanf:"sweep_interval" json:"sweep_interval,omitempty" yaml:"sweep_interval" jsonschema:"type=string"`
	NextAllowlist []string      `koanf:"next_allowlist" json:"next_allowlist,omitempty" yaml:"next_allowlist"`
}

// BlogConfig configures post listings.
type BlogConfig struct {
	PageSize int `koanf:"page_size" json:"page_size,omitempty" yaml:"page_size" jsonschema:"minimum=1,maximum=100"`
}

// AvatarConfig selects and configures picture storage.
type AvatarConfig struct {
	Backend        string   `koanf:"backend" json:"backend,omitempty" yaml:"backend" jsonschema:"enum=fs,enum=s3"`
	Dir            string   `koanf:"dir" json:"dir,omitempty" yaml:"dir"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes" json:"max_upload_bytes,omitempty" yaml:"max_upload_bytes" jsonschema:"minimum=1"`
	S3             S3Config `koanf:"s3" json:"s3,omitempty" yaml:"s3"`
}

// S3Config configures the S3 avatar backend.
type S3Config struct {
	Bucket          string `koanf:"bucket" json:"bucket,omitempty" yaml:"bucket"`
	Region          string `koanf:"region" json:"region,omitempty" yaml:"region"`
	Endpoint        string `koanf:"endpoint" json:"endpoint,omitempty" yaml:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id" json:"access_key_id,omitempty" yaml:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key" json:"secret_access_key,omitempty" yaml:"secret_access_key"`
	Prefix          string `koanf:"prefix" json:"prefix,omitempty" yaml:"prefix"`
	UsePathStyle    bool   `koanf:"use_path_style" json:"use_path_style,omitempty" yaml:"use_path_style"`
}

// MailConfig selects and configures outbound mail.
type MailConfig struct {
	Backend string     `koanf:"backend" json:"backend,omitempty" yaml:"backend" jsonschema:"enum=log,enum=smtp"`
	From    string     `koanf:"from" json:"from,omitempty" yaml:"from"`
	SMTP    SMTPConfig `koanf:"smtp" json:"smtp,omitempty" yaml:"smtp"`
}

// SMTPConfig configures the SMTP mail backend.
type SMTPConfig struct {
	Host        string `koanf:"host" json:"host,omitempty" yaml:"host"`
	Port        int    `koanf:"port" json:"port,omitempty" yaml:"port" jsonschema:"minimum=1,maximum=65535"`
	Username    string `koanf:"username" json:"username,omitempty" yaml:"username"`
	Password    string `koanf:"password" json:"password,omitempty" yaml:"password"`
	ImplicitTLS bool   `koanf:"implicit_tls" json:"implicit_tls,omitempty" yaml:"implicit_tls"`
}

// Default returns the built-in configuration. It has no secret key; one must
// come from the file or INKWELL_SECRET_KEY.
func Default() Config {
	return Config{
		Log: LogConfig{Format: "json", Level: "info"},
		HTTP: HTTPConfig{
			Addr:         "127.0.0.1:8080",
			BaseURL:      "http://127.0.0.1:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Storage: StorageConfig{
			Driver:          DriverSQLite,
			SQLitePath:      "inkwell.db",
			MaxConns:        8,
			ConnectAttempts: 8,
		},
		Auth: AuthConfig{
			SessionTTL:    auth.DefaultSessionTTL,
			RememberTTL:   auth.DefaultRememberTTL,
			ResetTTL:      auth.DefaultResetTokenTTL,
			SweepInterval: 10 * time.Minute,
			NextAllowlist: []string{"/**"},
		},
		Blog: BlogConfig{PageSize: 5},
		Avatar: AvatarConfig{
			Backend:        AvatarFS,
			Dir:            "avatars",
			MaxUploadBytes: 4 << 20,
			S3:             S3Config{Region: "us-east-1"},
		},
		Mail: MailConfig{
			Backend: MailLog,
			From:    "noreply@inkwell.invalid",
			SMTP:    SMTPConfig{Port: 587},
		},
	}
}

func invalid(field string, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
}

// Validate checks cross-field constraints the schema cannot express.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}

	if err := c.ValidateStorage(); err != nil {
		return err
	}

	if len(c.Auth.SecretKey) < auth.MinSecretLength {
		return invalid("auth.secret_key", "secret key must be at least %d bytes", auth.MinSecretLength)
	}
	for name, ttl := range map[string]time.Duration{
		"auth.session_ttl":    c.Auth.SessionTTL,
		"auth.remember_ttl":   c.Auth.RememberTTL,
		"auth.reset_ttl":      c.Auth.ResetTTL,
		"auth.sweep_interval": c.Auth.SweepInterval,
	} {
		if ttl <= 0 {
			return invalid(name, "%s must be positive", name)
		}
	}
	for _, pattern := range c.Auth.NextAllowlist {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return oops.Code("CONFIG_INVALID").With("field", "auth.next_allowlist").With("pattern", pattern).Wrap(err)
		}
	}

	if c.Blog.PageSize <= 0 {
		return invalid("blog.page_size", "page size must be positive")
	}

	switch c.Avatar.Backend {
	case AvatarFS:
		if c.Avatar.Dir == "" {
			return invalid("avatar.dir", "avatar directory is required for the fs backend")
		}
	case AvatarS3:
		if c.Avatar.S3.Bucket == "" {
			return invalid("avatar.s3.bucket", "bucket is required for the s3 backend")
		}
	default:
		return invalid("avatar.backend", "avatar backend must be %q or %q, got %q", AvatarFS, AvatarS3, c.Avatar.Backend)
	}
	if c.Avatar.MaxUploadBytes <= 0 {
		return invalid("avatar.max_upload_bytes", "upload limit must be positive")
	}

	switch c.Mail.Backend {
	case MailLog:
	case MailSMTP:
		if c.Mail.SMTP.Host == "" {
			return invalid("mail.smtp.host", "smtp host is required for the smtp backend")
		}
	default:
		return invalid("mail.backend", "mail backend must be %q or %q, got %q", MailLog, MailSMTP, c.Mail.Backend)
	}
	return nil
}

// ValidateStorage checks only the storage section. Commands that touch
// nothing but the database use it instead of Validate.
func (c *Config) ValidateStorage() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return invalid("storage.database_url", "database URL is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return invalid("storage.sqlite_path", "sqlite path is required for the sqlite driver")
		}
	default:
		return invalid("storage.driver", "storage driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Storage.Driver)
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Auth.SecretKey = mask(c.Auth.SecretKey)
	c.Avatar.S3.SecretAccessKey = mask(c.Avatar.S3.SecretAccessKey)
	c.Mail.SMTP.Password = mask(c.Mail.SMTP.Password)
	if u, err := url.Parse(c.Storage.DatabaseURL); err == nil && u.User != nil {
		c.Storage.DatabaseURL = u.Redacted()
	}
	c.Auth.NextAllowlist = append([]string(nil), c.Auth.NextAllowlist...)
	return c
}
