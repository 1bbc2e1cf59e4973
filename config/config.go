package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scorekit/adapters/redis"
	"scorekit/adapters/sqlx"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	Environment Environment `json:"environment" yaml:"environment" env:"SCOREKIT_ENV"`
	Profile     string      `json:"profile" yaml:"profile" env:"SCOREKIT_PROFILE"`

	Server      ServerConfig      `json:"server" yaml:"server"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Tokens      TokenConfig       `json:"tokens" yaml:"tokens"`
	Leaderboard LeaderboardConfig `json:"leaderboard" yaml:"leaderboard"`
	Sync        SyncConfig        `json:"sync" yaml:"sync"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Security    SecurityConfig    `json:"security" yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" yaml:"address" env:"SCOREKIT_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" yaml:"path_prefix" env:"SCOREKIT_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" yaml:"cors_origin" env:"SCOREKIT_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"SCOREKIT_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"SCOREKIT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"SCOREKIT_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" env:"SCOREKIT_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SCOREKIT_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects and configures the ledger adapter
type StorageConfig struct {
	Adapter string      `json:"adapter" yaml:"adapter" env:"SCOREKIT_STORAGE_ADAPTER"`
	SQL     sqlx.Config `json:"sql,omitempty" yaml:"sql,omitempty"`
	File    FileConfig  `json:"file,omitempty" yaml:"file,omitempty"`
}

// FileConfig holds JSON file ledger configuration
type FileConfig struct {
	Path string `json:"path" yaml:"path" env:"SCOREKIT_STORAGE_FILE_PATH"`
}

// TokenConfig holds action token configuration
type TokenConfig struct {
	// Secret signs issued tokens. Required outside development.
	Secret    string        `json:"secret" yaml:"secret" env:"SCOREKIT_TOKEN_SECRET"`
	TTL       time.Duration `json:"ttl" yaml:"ttl" env:"SCOREKIT_TOKEN_TTL"`
	Retention time.Duration `json:"retention" yaml:"retention" env:"SCOREKIT_TOKEN_RETENTION"`
	// Store selects where consumed-token state lives: memory or redis.
	Store string       `json:"store" yaml:"store" env:"SCOREKIT_TOKEN_STORE"`
	Redis redis.Config `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// LeaderboardConfig bounds the in-memory board and the update path
type LeaderboardConfig struct {
	Size     int   `json:"size" yaml:"size" env:"SCOREKIT_LEADERBOARD_SIZE"`
	MaxScore int64 `json:"max_score" yaml:"max_score" env:"SCOREKIT_LEADERBOARD_MAX_SCORE"`
	MaxDelta int64 `json:"max_delta" yaml:"max_delta" env:"SCOREKIT_LEADERBOARD_MAX_DELTA"`
}

// SyncConfig controls the periodic ledger-to-board reconciliation
type SyncConfig struct {
	Interval       time.Duration `json:"interval" yaml:"interval" env:"SCOREKIT_SYNC_INTERVAL"`
	RebuildOnStart bool          `json:"rebuild_on_start" yaml:"rebuild_on_start" env:"SCOREKIT_SYNC_REBUILD_ON_START"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" yaml:"level" env:"SCOREKIT_LOG_LEVEL"`
	Format     string            `json:"format" yaml:"format" env:"SCOREKIT_LOG_FORMAT"`
	Output     string            `json:"output" yaml:"output" env:"SCOREKIT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" yaml:"enable_rate_limit" env:"SCOREKIT_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" yaml:"api_keys,omitempty" env:"SCOREKIT_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" env:"SCOREKIT_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int `json:"burst_size" yaml:"burst_size" env:"SCOREKIT_SECURITY_RATE_LIMIT_BURST"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a JSON or YAML file, determined by
// extension. Environment variables override file values.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path cannot be empty")
	}
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath) // #nosec G304 - operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config file %s must have a .json, .yaml or .yml extension", path)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/scorekit.json",
			},
		},
		Tokens: TokenConfig{
			TTL:       5 * time.Minute,
			Retention: 24 * time.Hour,
			Store:     "memory",
			Redis:     redis.DefaultConfig(),
		},
		Leaderboard: LeaderboardConfig{
			Size:     10,
			MaxScore: 1_000_000_000,
			MaxDelta: 10_000,
		},
		Sync: SyncConfig{
			Interval:       5 * time.Minute,
			RebuildOnStart: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
			APIKeys: []string{},
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}
	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}
	if err := c.Tokens.Validate(c.Environment); err != nil {
		errs = append(errs, fmt.Sprintf("tokens config: %v", err))
	}
	if err := c.Leaderboard.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("leaderboard config: %v", err))
	}
	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("sync config: %v", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Tokens.Secret != "" {
		cfg.Tokens.Secret = "[REDACTED]"
	}
	if cfg.Tokens.Redis.Password != "" {
		cfg.Tokens.Redis.Password = "[REDACTED]"
	}
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
