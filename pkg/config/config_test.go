package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9000
tokenizer:
  defaultMerges: 8
  tieBreak: first_seen
redis:
  cacheTTL: 2m
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Tokenizer.DefaultMerges != 8 || cfg.Tokenizer.TieBreak != "first_seen" {
		t.Errorf("Tokenizer = %+v", cfg.Tokenizer)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("Redis.CacheTTL = %v, want 2m", cfg.Redis.CacheTTL)
	}
	if cfg.Tokenizer.EndOfWord != "</w>" {
		t.Errorf("unset EndOfWord = %q, want default", cfg.Tokenizer.EndOfWord)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SP_SERVER_PORT", "7000")
	t.Setenv("SP_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SP_REDIS_ENABLED", "false")
	t.Setenv("SP_TOKENIZER_DEFAULT_MERGES", "3")
	t.Setenv("SP_LOGGING_LEVEL", "debug")
	t.Setenv("SP_REDIS_BREAKER_THRESHOLD", "7")
	t.Setenv("SP_REDIS_BREAKER_COOLDOWN", "1m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis.Enabled should be false")
	}
	if cfg.Tokenizer.DefaultMerges != 3 {
		t.Errorf("Tokenizer.DefaultMerges = %d, want 3", cfg.Tokenizer.DefaultMerges)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Redis.BreakerThreshold != 7 || cfg.Redis.BreakerCooldown != time.Minute {
		t.Errorf("Redis breaker = %d/%v, want 7/1m", cfg.Redis.BreakerThreshold, cfg.Redis.BreakerCooldown)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"documents", func(c *Config) { c.Search.MaxDocuments = 0 }, "maxDocuments"},
		{"merges", func(c *Config) { c.Tokenizer.DefaultMerges = -1 }, "defaultMerges"},
		{"max merges", func(c *Config) { c.Tokenizer.MaxMerges = 1 }, "maxMerges"},
		{"marker", func(c *Config) { c.Tokenizer.EndOfWord = "a b" }, "endOfWord"},
		{"snapshot", func(c *Config) { c.Analytics.SnapshotInterval = 0 }, "snapshotInterval"},
		{"breaker", func(c *Config) { c.Redis.BreakerCooldown = 0 }, "breakerCooldown"},
		{"connect", func(c *Config) { c.Redis.ConnectAttempts = 0 }, "connectAttempts"},
		{"analytics", func(c *Config) {
			c.Analytics.Enabled = true
			c.Kafka.Brokers = nil
		}, "kafka broker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := Default().Postgres.DSN()
	for _, part := range []string{"host=localhost", "port=5432", "dbname=searchalgorithms", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN() = %q, missing %q", dsn, part)
		}
	}
}

func TestDevelopmentConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	if err != nil {
		t.Fatalf("Load(development.yaml) error = %v", err)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
}
