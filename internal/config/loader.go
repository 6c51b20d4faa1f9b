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
// built-in defaults, applies CHAINBET_* environment variable overrides, and
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

// applyEnvOverrides reads well-known CHAINBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "CHAINBET_CHAIN_RPC_URL")
	setStr(&cfg.Chain.ContractAddress, "CHAINBET_CHAIN_CONTRACT_ADDRESS")

	// ── Database ──
	setStr(&cfg.Database.DSN, "CHAINBET_DATABASE_DSN")
	setStr(&cfg.Database.Host, "CHAINBET_DATABASE_HOST")
	setInt(&cfg.Database.Port, "CHAINBET_DATABASE_PORT")
	setStr(&cfg.Database.Database, "CHAINBET_DATABASE_NAME")
	setStr(&cfg.Database.User, "CHAINBET_DATABASE_USER")
	setStr(&cfg.Database.Password, "CHAINBET_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "CHAINBET_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "CHAINBET_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "CHAINBET_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "CHAINBET_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CHAINBET_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CHAINBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CHAINBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CHAINBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CHAINBET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CHAINBET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CHAINBET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CHAINBET_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CHAINBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CHAINBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "CHAINBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CHAINBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CHAINBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CHAINBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CHAINBET_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.SnapshotPrefix, "CHAINBET_S3_SNAPSHOT_PREFIX")

	// ── Reconcile ──
	setDuration(&cfg.Reconcile.Interval, "CHAINBET_RECONCILE_INTERVAL")
	setBool(&cfg.Reconcile.OnCreate, "CHAINBET_RECONCILE_ON_CREATE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "CHAINBET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CHAINBET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CHAINBET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CHAINBET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "CHAINBET_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "CHAINBET_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CHAINBET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CHAINBET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CHAINBET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CHAINBET_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CHAINBET_MODE")
	setStr(&cfg.LogLevel, "CHAINBET_LOG_LEVEL")
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
