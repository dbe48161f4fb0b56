package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateInDevMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "dev"

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "dev"

	cfg.Platform.FeeBps = 1001
	cfg.Platform.AuthorityAddress = "not-an-address"
	cfg.Server.Port = 0
	cfg.Redis.Addr = ""
	cfg.Notify.TelegramToken = "tok" // chat id missing

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fee_bps")
	assert.Contains(t, err.Error(), "authority_address")
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "redis")
	assert.Contains(t, err.Error(), "telegram")

	cfg.Platform.AuthorityAddress = "0x00000000000000000000000000000000000000a1"
	err = cfg.Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "authority_address")
}

func TestValidateServerModeNeedsSignerKey(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signer")

	cfg.Signer.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "dev"
log_level = "debug"

[database]
host = "db.internal"
port = 5433

[server]
port = 9000
rate_window = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("GHOSTODDS_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("GHOSTODDS_SERVER_PORT", "9100")
	t.Setenv("GHOSTODDS_ARCHIVE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	// File values on top of defaults.
	assert.Equal(t, "dev", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RateWindow.Duration)

	// Defaults survive where the file is silent.
	assert.Equal(t, "ghostodds", cfg.Database.Database)
	assert.Equal(t, "usdc", cfg.Platform.CollateralMint)

	// Env overrides beat the file.
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Archive.Enabled)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Signer.PrivateKey = "secret-key"
	cfg.Database.Password = "hunter2"
	cfg.Redis.Password = "redispw"
	cfg.S3.SecretKey = "s3secret"
	cfg.Notify.TelegramToken = "tg-token"

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Signer.PrivateKey)
	assert.Equal(t, "***", out.Database.Password)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)

	// Empty secrets stay empty, non-secret fields pass through.
	assert.Empty(t, out.S3.AccessKey)
	assert.Equal(t, cfg.Server.Port, out.Server.Port)

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Database.Password)

	// Mutating the redacted slice copy does not leak back.
	out.Notify.Events[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Notify.Events[0])
}
