package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
postgres:
  host: localhost
  database: analytics
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Refresh.Interval != 5*time.Minute {
		t.Fatalf("refresh interval = %v, want 5m", cfg.Refresh.Interval)
	}
	if cfg.Refresh.WindowBuckets != 3 {
		t.Fatalf("window buckets = %d, want 3", cfg.Refresh.WindowBuckets)
	}
	if cfg.Forex.EMAFast != 8 || cfg.Forex.EMASlow != 21 {
		t.Fatalf("ema periods = %d/%d, want 8/21", cfg.Forex.EMAFast, cfg.Forex.EMASlow)
	}
	if cfg.Usage.DataRatePerGB != 49 {
		t.Fatalf("data rate = %v, want 49", cfg.Usage.DataRatePerGB)
	}
	if cfg.Sessions.IdleGap != 10*time.Minute || cfg.Sessions.MinInteractions != 3 {
		t.Fatalf("session defaults = %v/%d", cfg.Sessions.IdleGap, cfg.Sessions.MinInteractions)
	}
	if len(cfg.Forex.Pairs) == 0 {
		t.Fatalf("pairs must default to non-empty")
	}
}

func TestLoadRejectsInvalidBackoff(t *testing.T) {
	path := writeConfig(t, `
environment: test
refresh:
  retry_backoff_min: 10s
  retry_backoff_max: 1s
postgres:
  host: localhost
  database: analytics
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for inverted backoff bounds")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	path := writeConfig(t, `
environment: test
kafka:
  enabled: true
postgres:
  host: localhost
  database: analytics
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for enabled kafka without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: test
postgres:
  host: localhost
  database: analytics
`)

	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("FOREX_PAIRS", "WAKMRV,MRVZAR,ZARGBP")

	cfg, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("postgres host = %q", cfg.Postgres.Host)
	}
	if len(cfg.Forex.Pairs) != 3 {
		t.Fatalf("pairs = %v", cfg.Forex.Pairs)
	}
}
