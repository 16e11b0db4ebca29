// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// Server
	ServerAddress string
	Environment   string
	EnableCORS    bool

	// Storage
	DBPath string

	// Tree policy
	MaxDepth      int // maximum exploration depth (root options are depth 1)
	MinBatchSize  int
	MaxBatchSize  int

	// External persona generator (optional; requests may also carry personas)
	GeneratorURL string

	// Logging
	LogLevel string
}

// Load reads configuration from the environment with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SELFTREE_ADDR", ":8080"),
		Environment:   getEnv("SELFTREE_ENV", "development"),
		EnableCORS:    getEnvBool("SELFTREE_ENABLE_CORS", true),
		DBPath:        getEnv("SELFTREE_DB", defaultDBPath()),
		MaxDepth:      getEnvInt("SELFTREE_MAX_DEPTH", 5),
		MinBatchSize:  getEnvInt("SELFTREE_MIN_BATCH", 2),
		MaxBatchSize:  getEnvInt("SELFTREE_MAX_BATCH", 3),
		GeneratorURL:  getEnv("SELFTREE_GENERATOR_URL", ""),
		LogLevel:      getEnv("SELFTREE_LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("SELFTREE_MAX_DEPTH must be >= 1, got %d", c.MaxDepth)
	}
	if c.MinBatchSize < 1 || c.MaxBatchSize < c.MinBatchSize {
		return fmt.Errorf("invalid batch bounds: min=%d max=%d", c.MinBatchSize, c.MaxBatchSize)
	}
	if c.DBPath == "" {
		return fmt.Errorf("SELFTREE_DB must not be empty")
	}
	return nil
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".selftree", "selftree.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
