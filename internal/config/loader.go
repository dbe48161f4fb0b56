package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies GHOSTODDS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GHOSTODDS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Signer ──
	setStr(&cfg.Signer.PrivateKey, "GHOSTODDS_SIGNER_PRIVATE_KEY")
	setStr(&cfg.Signer.EncryptedKeyPath, "GHOSTODDS_SIGNER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Signer.KeyPassword, "GHOSTODDS_SIGNER_KEY_PASSWORD")

	// ── Database ──
	setStr(&cfg.Database.DSN, "GHOSTODDS_DATABASE_DSN")
	setStr(&cfg.Database.Host, "GHOSTODDS_DATABASE_HOST")
	setInt(&cfg.Database.Port, "GHOSTODDS_DATABASE_PORT")
	setStr(&cfg.Database.Database, "GHOSTODDS_DATABASE_NAME")
	setStr(&cfg.Database.User, "GHOSTODDS_DATABASE_USER")
	setStr(&cfg.Database.Password, "GHOSTODDS_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "GHOSTODDS_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "GHOSTODDS_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "GHOSTODDS_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "GHOSTODDS_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "GHOSTODDS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "GHOSTODDS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "GHOSTODDS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "GHOSTODDS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "GHOSTODDS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "GHOSTODDS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "GHOSTODDS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "GHOSTODDS_S3_REGION")
	setStr(&cfg.S3.Bucket, "GHOSTODDS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "GHOSTODDS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "GHOSTODDS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "GHOSTODDS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "GHOSTODDS_S3_FORCE_PATH_STYLE")

	// ── Oracle ──
	setStr(&cfg.Oracle.HermesURL, "GHOSTODDS_ORACLE_HERMES_URL")

	// ── Platform ──
	setStr(&cfg.Platform.AuthorityAddress, "GHOSTODDS_PLATFORM_AUTHORITY_ADDRESS")
	setStr(&cfg.Platform.CollateralMint, "GHOSTODDS_PLATFORM_COLLATERAL_MINT")
	setInt(&cfg.Platform.FeeBps, "GHOSTODDS_PLATFORM_FEE_BPS")

	// ── Server ──
	setInt(&cfg.Server.Port, "GHOSTODDS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "GHOSTODDS_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "GHOSTODDS_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "GHOSTODDS_SERVER_RATE_WINDOW")
	setDuration(&cfg.Server.AuthMaxSkew, "GHOSTODDS_SERVER_AUTH_MAX_SKEW")
	setDuration(&cfg.Server.ShutdownTimeout, "GHOSTODDS_SERVER_SHUTDOWN_TIMEOUT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "GHOSTODDS_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "GHOSTODDS_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "GHOSTODDS_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "GHOSTODDS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "GHOSTODDS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "GHOSTODDS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "GHOSTODDS_NOTIFY_EVENTS")

	// ── Top level ──
	setStr(&cfg.Mode, "GHOSTODDS_MODE")
	setStr(&cfg.LogLevel, "GHOSTODDS_LOG_LEVEL")
}

// Env override setter helpers. Each only writes when the variable is present
// and parses cleanly.

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
