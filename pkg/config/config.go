// Package config loads server configuration from defaults, an optional YAML
// file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Environment   string        `yaml:"environment"`
	ListenAddr    string        `yaml:"listen_addr"`
	ArtifactsDir  string        `yaml:"artifacts_dir"`
	JobStore      string        `yaml:"job_store"` // memory, sqlite, redis
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisURL      string        `yaml:"redis_url"`
	JobRetention  time.Duration `yaml:"job_retention"`
	MaxWorkers    int           `yaml:"max_workers"`
	TrainWorkers  int           `yaml:"train_workers"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	MaxSampleRows int           `yaml:"max_sample_rows"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment:  "development",
		ListenAddr:   ":8080",
		ArtifactsDir: "artifacts",
		JobStore:     "memory",
		SQLitePath:   "data/jobs.db",
		RedisURL:     "",
		JobRetention: 24 * time.Hour,
		MaxWorkers:   4,
		TrainWorkers: 4,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Load builds the configuration. When path is non-empty the YAML file is
// required; environment variables override file values either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.ArtifactsDir = getEnv("ARTIFACTS_DIR", cfg.ArtifactsDir)
	cfg.JobStore = getEnv("JOB_STORE", cfg.JobStore)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.MaxWorkers = getEnvAsInt("MAX_WORKERS", cfg.MaxWorkers)
	cfg.TrainWorkers = getEnvAsInt("TRAIN_WORKERS", cfg.TrainWorkers)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.MaxSampleRows = getEnvAsInt("MAX_SAMPLE_ROWS", cfg.MaxSampleRows)
	if v := os.Getenv("JOB_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JOB_RETENTION: %w", err)
		}
		cfg.JobRetention = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.JobStore {
	case "memory", "sqlite":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when job_store is redis")
		}
	default:
		return fmt.Errorf("unknown job_store %q", c.JobStore)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1")
	}
	if c.TrainWorkers < 1 {
		return fmt.Errorf("train_workers must be at least 1")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
