package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
running:
  port: 4100
mysql:
  dsn: "u:p@tcp(db:3306)/"
redis:
  addrs: ["r1:6379", "r2:6379"]
auth:
  cache_ttl: 90s
`)
	if err := os.WriteFile(filepath.Join(dir, "syncConfig.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Running.Port != 4100 {
		t.Fatalf("port = %d, want 4100", cfg.Running.Port)
	}
	if cfg.Mysql.TenantDBFormat != "space_%d" {
		t.Fatalf("tenant format = %q, want default", cfg.Mysql.TenantDBFormat)
	}
	if len(cfg.Redis.Addrs) != 2 {
		t.Fatalf("redis addrs = %v", cfg.Redis.Addrs)
	}
	if cfg.Auth.CacheTTL != 90*time.Second {
		t.Fatalf("cache ttl = %v, want 90s", cfg.Auth.CacheTTL)
	}
	if cfg.Kafka.Topic != "sync-commits" {
		t.Fatalf("kafka topic = %q", cfg.Kafka.Topic)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "syncConfig.yaml"), []byte("running:\n  port: 1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SYNC_RUNNING_PORT", "5555")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Running.Port != 5555 {
		t.Fatalf("port = %d, want env override 5555", cfg.Running.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
