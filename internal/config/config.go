package config

import (
	"os"
	"strconv"

	"flakewatch/domain/stability"
	"flakewatch/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// AnalysisConfig holds the stability-test thresholds and defaults
type AnalysisConfig struct {
	// MinBucketSize excludes buckets with total <= this value
	MinBucketSize int
	// Alpha is the p-value cutoff for a REJECT verdict
	Alpha float64
	// DefaultGranularity is used when a request does not specify one
	DefaultGranularity string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	cfg := &Config{
		Database: DatabaseConfig{URL: url},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Analysis: AnalysisConfig{
			MinBucketSize:      getEnvIntOrDefault("MIN_BUCKET_SIZE", stability.DefaultConfig().MinBucketSize),
			Alpha:              getEnvFloatOrDefault("ALPHA", stability.DefaultConfig().Alpha),
			DefaultGranularity: getEnvOrDefault("GRANULARITY", "month"),
		},
	}

	if cfg.Analysis.MinBucketSize < 0 {
		return nil, errors.ConfigInvalid("MIN_BUCKET_SIZE must be non-negative")
	}
	if cfg.Analysis.Alpha <= 0 || cfg.Analysis.Alpha >= 1 {
		return nil, errors.ConfigInvalid("ALPHA must be in (0, 1)")
	}

	return cfg, nil
}

// StabilityConfig converts the analysis section into the domain config value
func (c *Config) StabilityConfig() stability.Config {
	return stability.Config{
		MinBucketSize: c.Analysis.MinBucketSize,
		Alpha:         c.Analysis.Alpha,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
