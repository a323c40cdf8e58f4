// Package config defines the top-level configuration for the trade journal
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TJ_* environment variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Stats    StatsConfig    `toml:"stats"`
	Import   ImportConfig   `toml:"import"`
	Backup   BackupConfig   `toml:"backup"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	URL        string `toml:"url"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters. An empty bucket
// disables import archiving and backups.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Enabled reports whether object storage is configured.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is requests per RateWindow per client IP; 0 disables it.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// AuthConfig holds the session token settings. The signing secret comes from
// jwt_secret, or from secret_file decrypted with secret_password.
type AuthConfig struct {
	JWTSecret      string   `toml:"jwt_secret"`
	SecretFile     string   `toml:"secret_file"`
	SecretPassword string   `toml:"secret_password"`
	TokenTTL       duration `toml:"token_ttl"`
	BcryptCost     int      `toml:"bcrypt_cost"`
	LoginLimit     int      `toml:"login_limit"`
	LoginWindow    duration `toml:"login_window"`
	CookieSecure   bool     `toml:"cookie_secure"`
}

// StatsConfig tunes the statistics aggregator.
type StatsConfig struct {
	// Location is the IANA zone trades are bucketed in (hour, weekday, day).
	Location string   `toml:"location"`
	CacheTTL duration `toml:"cache_ttl"`
}

// ImportConfig bounds CSV imports.
type ImportConfig struct {
	MaxBytes int64    `toml:"max_bytes"`
	MaxRows  int      `toml:"max_rows"`
	LockTTL  duration `toml:"lock_ttl"`
	Archive  bool     `toml:"archive"`
}

// BackupConfig schedules JSONL backups to object storage.
type BackupConfig struct {
	Cron     string `toml:"cron"`
	PartSize int64  `toml:"part_size"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "tradejournal",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tradejournal",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       300,
			RateWindow:      duration{time.Minute},
			ShutdownTimeout: duration{15 * time.Second},
		},
		Auth: AuthConfig{
			TokenTTL:    duration{7 * 24 * time.Hour},
			BcryptCost:  12,
			LoginLimit:  10,
			LoginWindow: duration{15 * time.Minute},
		},
		Stats: StatsConfig{
			Location: "UTC",
			CacheTTL: duration{10 * time.Minute},
		},
		Import: ImportConfig{
			MaxBytes: 5 << 20,
			MaxRows:  10_000,
			LockTTL:  duration{time.Minute},
			Archive:  true,
		},
		Backup: BackupConfig{
			Cron:     "0 3 * * *",
			PartSize: 8 << 20,
		},
		Notify: NotifyConfig{
			Events: []string{"import_rejected", "backup_completed", "backup_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"backup": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// minBcryptCost and maxBcryptCost mirror bcrypt.MinCost and bcrypt.MaxCost.
const (
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, backup, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.URL == "" && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr or url must be set")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled() && c.S3.Region == "" {
		errs = append(errs, "s3: region must not be empty when bucket is set")
	}

	// Server
	needsServer := c.Mode == "server" || c.Mode == "full"
	if needsServer {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}

		// Auth
		if c.Auth.JWTSecret == "" && c.Auth.SecretFile == "" {
			errs = append(errs, "auth: either jwt_secret or secret_file must be set")
		}
		if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
			errs = append(errs, "auth: jwt_secret must be at least 32 bytes")
		}
		if c.Auth.SecretFile != "" && c.Auth.SecretPassword == "" {
			errs = append(errs, "auth: secret_password is required when secret_file is set")
		}
		if c.Auth.TokenTTL.Duration <= 0 {
			errs = append(errs, "auth: token_ttl must be positive")
		}
		if c.Auth.BcryptCost < minBcryptCost || c.Auth.BcryptCost > maxBcryptCost {
			errs = append(errs, fmt.Sprintf("auth: bcrypt_cost must be %d-%d, got %d", minBcryptCost, maxBcryptCost, c.Auth.BcryptCost))
		}
		if c.Auth.LoginLimit > 0 && c.Auth.LoginWindow.Duration <= 0 {
			errs = append(errs, "auth: login_window must be positive when login_limit is set")
		}
	}

	// Stats
	if _, err := time.LoadLocation(c.Stats.Location); err != nil {
		errs = append(errs, fmt.Sprintf("stats: unknown location %q", c.Stats.Location))
	}
	if c.Stats.CacheTTL.Duration < 0 {
		errs = append(errs, "stats: cache_ttl must be >= 0")
	}

	// Import
	if c.Import.MaxBytes <= 0 {
		errs = append(errs, "import: max_bytes must be > 0")
	}
	if c.Import.MaxRows < 0 {
		errs = append(errs, "import: max_rows must be >= 0")
	}
	if c.Import.LockTTL.Duration <= 0 {
		errs = append(errs, "import: lock_ttl must be positive")
	}

	// Backup
	needsBackup := c.Mode == "backup" || c.Mode == "full"
	if needsBackup && c.S3.Enabled() {
		if c.Mode == "full" {
			if _, err := cron.ParseStandard(c.Backup.Cron); err != nil {
				errs = append(errs, fmt.Sprintf("backup: invalid cron %q: %v", c.Backup.Cron, err))
			}
		}
		if c.Backup.PartSize < 0 {
			errs = append(errs, "backup: part_size must be >= 0")
		}
	}
	if c.Mode == "backup" && !c.S3.Enabled() {
		errs = append(errs, "backup: mode backup requires s3.bucket")
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsServerMode returns true when the HTTP API should be started.
func (c *Config) IsServerMode() bool {
	return c.Mode == "server" || c.Mode == "full"
}

// Location resolves Stats.Location, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Stats.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}
