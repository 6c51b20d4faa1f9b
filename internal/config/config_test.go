package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Chain.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Run("defaults with contract address pass", func(t *testing.T) {
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mode = "bogus"
		cfg.LogLevel = "loud"
		cfg.Chain.RPCURL = ""
		cfg.Server.Port = 0

		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected validation error, got nil")
		}
		for _, want := range []string{"unknown mode", "unknown log_level", "rpc_url", "port"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not mention %q", err, want)
			}
		}
	})

	t.Run("missing contract address rejected", func(t *testing.T) {
		cfg := Defaults()
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "contract_address") {
			t.Errorf("error = %v, want contract_address complaint", err)
		}
	})

	t.Run("dsn replaces host fields", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.DSN = "postgres://u:p@db:5432/chainbet"
		cfg.Database.Host = ""
		cfg.Database.Database = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate with DSN: %v", err)
		}
	})

	t.Run("full mode needs reconcile interval", func(t *testing.T) {
		cfg := validConfig()
		cfg.Reconcile.Interval = duration{}
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "interval") {
			t.Errorf("error = %v, want interval complaint", err)
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
mode = "server"
log_level = "debug"

[chain]
rpc_url = "https://rpc.example.org"
contract_address = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

[database]
host = "db.internal"
port = 5433

[reconcile]
interval = "30s"

[server]
port = 9090
rate_limit = 100
rate_window = "1m"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "server" || cfg.LogLevel != "debug" {
		t.Errorf("mode/log_level = %q/%q, want server/debug", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Chain.RPCURL != "https://rpc.example.org" {
		t.Errorf("rpc_url = %q", cfg.Chain.RPCURL)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("database = %s:%d, want db.internal:5433", cfg.Database.Host, cfg.Database.Port)
	}
	// Unset fields keep their defaults.
	if cfg.Database.User != "postgres" {
		t.Errorf("database user = %q, want default postgres", cfg.Database.User)
	}
	if cfg.Reconcile.Interval.Duration != 30*time.Second {
		t.Errorf("reconcile interval = %v, want 30s", cfg.Reconcile.Interval.Duration)
	}
	if cfg.Server.RateLimit != 100 || cfg.Server.RateWindow.Duration != time.Minute {
		t.Errorf("rate limit = %d per %v, want 100 per 1m", cfg.Server.RateLimit, cfg.Server.RateWindow.Duration)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate loaded config: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHAINBET_CHAIN_RPC_URL", "https://rpc.override.org")
	t.Setenv("CHAINBET_DATABASE_PASSWORD", "hunter2")
	t.Setenv("CHAINBET_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CHAINBET_RECONCILE_INTERVAL", "2m")
	t.Setenv("CHAINBET_REDIS_ENABLED", "false")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Chain.RPCURL != "https://rpc.override.org" {
		t.Errorf("rpc_url = %q", cfg.Chain.RPCURL)
	}
	if cfg.Database.Password != "hunter2" {
		t.Errorf("database password not overridden")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Reconcile.Interval.Duration != 2*time.Minute {
		t.Errorf("reconcile interval = %v, want 2m", cfg.Reconcile.Interval.Duration)
	}
	if cfg.Redis.Enabled {
		t.Error("redis still enabled after override")
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Password = "secret"
	cfg.Server.APIKey = "key"
	cfg.Notify.TelegramToken = "token"

	red := RedactedConfig(&cfg)

	if red.Database.Password != "***" || red.Server.APIKey != "***" || red.Notify.TelegramToken != "***" {
		t.Errorf("secrets not redacted: %+v", red)
	}
	if cfg.Database.Password != "secret" {
		t.Error("original config mutated by redaction")
	}
	// Empty secrets stay empty rather than turning into placeholders.
	if red.Redis.Password != "" {
		t.Errorf("empty redis password became %q", red.Redis.Password)
	}
}
