// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// search service and its backing infrastructure (Redis, Kafka, PostgreSQL).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	// RateLimit is the number of requests per minute allowed per client
	// address. Zero disables limiting.
	RateLimit   int      `yaml:"rateLimit"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// LocalCacheSize bounds the in-process LRU used when Redis is down.
	LocalCacheSize int `yaml:"localCacheSize"`
	// BreakerThreshold consecutive Redis failures send cache traffic to the
	// local LRU for BreakerCooldown before Redis is tried again.
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerCooldown  time.Duration `yaml:"breakerCooldown"`
	ConnectAttempts  int           `yaml:"connectAttempts"`
}

// SearchConfig bounds the size of cosine and elementary search requests.
type SearchConfig struct {
	MaxDocuments   int           `yaml:"maxDocuments"`
	MaxTextBytes   int           `yaml:"maxTextBytes"`
	MaxArrayLength int           `yaml:"maxArrayLength"`
	CacheResults   bool          `yaml:"cacheResults"`
	Timeout        time.Duration `yaml:"timeout"`
}

// TokenizerConfig controls BPE learning defaults and limits.
type TokenizerConfig struct {
	DefaultMerges  int    `yaml:"defaultMerges"`
	MaxMerges      int    `yaml:"maxMerges"`
	MaxCorpusBytes int    `yaml:"maxCorpusBytes"`
	EndOfWord      string `yaml:"endOfWord"`
	TieBreak       string `yaml:"tieBreak"`
}

// AnalyticsConfig controls event collection and snapshotting.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    4 << 20,
			RateLimit:       600,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			Database:        "searchalgorithms",
			User:            "searchalgorithms",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "searchalgorithms-group",
			Topics: KafkaTopics{
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Enabled:        true,
			Addr:           "localhost:6379",
			DB:             0,
			PoolSize:       10,
			CacheTTL:       60 * time.Second,
			LocalCacheSize: 1024,

			BreakerThreshold: 3,
			BreakerCooldown:  10 * time.Second,
			ConnectAttempts:  3,
		},
		Search: SearchConfig{
			MaxDocuments:   10000,
			MaxTextBytes:   1 << 20,
			MaxArrayLength: 1 << 20,
			CacheResults:   true,
			Timeout:        5 * time.Second,
		},
		Tokenizer: TokenizerConfig{
			DefaultMerges:  10,
			MaxMerges:      10000,
			MaxCorpusBytes: 1 << 20,
			EndOfWord:      "</w>",
			TieBreak:       "lexicographic",
		},
		Analytics: AnalyticsConfig{
			Enabled:          false,
			BufferSize:       10000,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rateLimit must be >= 0"))
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}
	if c.Search.MaxDocuments <= 0 {
		errs = append(errs, errors.New("search.maxDocuments must be positive"))
	}
	if c.Search.MaxTextBytes <= 0 {
		errs = append(errs, errors.New("search.maxTextBytes must be positive"))
	}
	if c.Search.MaxArrayLength <= 0 {
		errs = append(errs, errors.New("search.maxArrayLength must be positive"))
	}
	if c.Tokenizer.DefaultMerges < 0 {
		errs = append(errs, errors.New("tokenizer.defaultMerges must be >= 0"))
	}
	if c.Tokenizer.MaxMerges < c.Tokenizer.DefaultMerges {
		errs = append(errs, errors.New("tokenizer.maxMerges must be >= tokenizer.defaultMerges"))
	}
	if c.Tokenizer.MaxCorpusBytes <= 0 {
		errs = append(errs, errors.New("tokenizer.maxCorpusBytes must be positive"))
	}
	if strings.TrimSpace(c.Tokenizer.EndOfWord) == "" || strings.ContainsAny(c.Tokenizer.EndOfWord, " \t\n") {
		errs = append(errs, fmt.Errorf("tokenizer.endOfWord %q must be non-empty without whitespace", c.Tokenizer.EndOfWord))
	}
	if c.Redis.BreakerThreshold <= 0 || c.Redis.BreakerCooldown <= 0 {
		errs = append(errs, errors.New("redis.breakerThreshold and redis.breakerCooldown must be positive"))
	}
	if c.Redis.ConnectAttempts <= 0 {
		errs = append(errs, errors.New("redis.connectAttempts must be positive"))
	}
	if c.Analytics.SnapshotInterval <= 0 {
		errs = append(errs, errors.New("analytics.snapshotInterval must be positive"))
	}
	if c.Analytics.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("analytics requires at least one kafka broker"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_REDIS_BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.BreakerThreshold = n
		}
	}
	if v := os.Getenv("SP_REDIS_BREAKER_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redis.BreakerCooldown = d
		}
	}
	if v := os.Getenv("SP_ANALYTICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = b
		}
	}
	if v := os.Getenv("SP_TOKENIZER_TIE_BREAK"); v != "" {
		cfg.Tokenizer.TieBreak = v
	}
	if v := os.Getenv("SP_TOKENIZER_DEFAULT_MERGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tokenizer.DefaultMerges = n
		}
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SP_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
