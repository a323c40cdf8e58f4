package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TJ_* environment variable overrides, and
// returns the final Config. A missing file is not an error when path is the
// default; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || path != DefaultPath {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// DefaultPath is the config file read when no -config flag is given.
const DefaultPath = "config.toml"

// applyEnvOverrides reads well-known TJ_* environment variables and overwrites
// the corresponding Config fields when a variable is set (i.e. not empty).
// This lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "TJ_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // platform convention
	setStr(&cfg.Database.Host, "TJ_DATABASE_HOST")
	setInt(&cfg.Database.Port, "TJ_DATABASE_PORT")
	setStr(&cfg.Database.Database, "TJ_DATABASE_NAME")
	setStr(&cfg.Database.User, "TJ_DATABASE_USER")
	setStr(&cfg.Database.Password, "TJ_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "TJ_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "TJ_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "TJ_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "TJ_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "TJ_REDIS_URL")
	setStr(&cfg.Redis.Addr, "TJ_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TJ_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TJ_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TJ_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TJ_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TJ_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TJ_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TJ_S3_REGION")
	setStr(&cfg.S3.Bucket, "TJ_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TJ_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TJ_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TJ_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TJ_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "TJ_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform convention
	setStringSlice(&cfg.Server.CORSOrigins, "TJ_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "TJ_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "TJ_SERVER_RATE_WINDOW")

	// ── Auth ──
	setStr(&cfg.Auth.JWTSecret, "TJ_AUTH_JWT_SECRET")
	setStr(&cfg.Auth.JWTSecret, "JWT_SECRET") // compatibility alias
	setStr(&cfg.Auth.SecretFile, "TJ_AUTH_SECRET_FILE")
	setStr(&cfg.Auth.SecretPassword, "TJ_AUTH_SECRET_PASSWORD")
	setDuration(&cfg.Auth.TokenTTL, "TJ_AUTH_TOKEN_TTL")
	setInt(&cfg.Auth.BcryptCost, "TJ_AUTH_BCRYPT_COST")
	setInt(&cfg.Auth.LoginLimit, "TJ_AUTH_LOGIN_LIMIT")
	setDuration(&cfg.Auth.LoginWindow, "TJ_AUTH_LOGIN_WINDOW")
	setBool(&cfg.Auth.CookieSecure, "TJ_AUTH_COOKIE_SECURE")

	// ── Stats ──
	setStr(&cfg.Stats.Location, "TJ_STATS_LOCATION")
	setDuration(&cfg.Stats.CacheTTL, "TJ_STATS_CACHE_TTL")

	// ── Import ──
	setInt64(&cfg.Import.MaxBytes, "TJ_IMPORT_MAX_BYTES")
	setInt(&cfg.Import.MaxRows, "TJ_IMPORT_MAX_ROWS")
	setDuration(&cfg.Import.LockTTL, "TJ_IMPORT_LOCK_TTL")
	setBool(&cfg.Import.Archive, "TJ_IMPORT_ARCHIVE")

	// ── Backup ──
	setStr(&cfg.Backup.Cron, "TJ_BACKUP_CRON")
	setInt64(&cfg.Backup.PartSize, "TJ_BACKUP_PART_SIZE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TJ_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TJ_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TJ_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TJ_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TJ_MODE")
	setStr(&cfg.LogLevel, "TJ_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
