package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func validConfig() Config {
	cfg := Defaults()
	cfg.Auth.JWTSecret = testSecret
	return cfg
}

func TestDefaultsNeedOnlyASecret(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret or secret_file")

	cfg = validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Auth.BcryptCost = 2
	cfg.Stats.Location = "Mars/Olympus"
	cfg.Import.MaxBytes = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{`unknown mode "trade"`, `unknown log_level "loud"`, "stats: unknown location", "import: max_bytes"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateBackupCron(t *testing.T) {
	cfg := validConfig()
	cfg.Backup.Cron = "every night"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup: invalid cron")

	cfg.Mode = "server"
	assert.NoError(t, cfg.Validate())
}

func TestBackupModeNeedsBucket(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "backup"
	cfg.S3.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires s3.bucket")
	assert.NotContains(t, err.Error(), "jwt_secret")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tj.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "server"

[server]
port = 9000
rate_window = "30s"

[stats]
location = "America/New_York"
`), 0o600))

	t.Setenv("TJ_AUTH_JWT_SECRET", testSecret)
	t.Setenv("TJ_SERVER_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TJ_IMPORT_LOCK_TTL", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RateWindow.Duration)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Import.LockTTL.Duration)
	assert.Equal(t, "America/New_York", cfg.Location().String())
	assert.Equal(t, 10, cfg.Auth.LoginLimit)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "pw"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Auth.JWTSecret)
	assert.Equal(t, "***", out.Database.Password)
	assert.Equal(t, "***", out.Notify.DiscordWebhookURL)
	assert.Empty(t, out.S3.SecretKey)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)

	out.Server.CORSOrigins[0] = "mutated"
	assert.False(t, strings.HasPrefix(cfg.Server.CORSOrigins[0], "mutated"))
}
