// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Record kinds tracked by the synchronizer, one checkpoint each
const (
	KindIssues      = "issues"
	KindDisciplines = "disciplinas"
)

// Config represents the application configuration
type Config struct {
	Jira  *JiraConfig
	Store *StoreConfig
	Sync  *SyncConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// SyncConfig holds settings for a synchronization run
type SyncConfig struct {
	CheckpointDir   string
	Kinds           []string
	MetricsTextfile string
	Location        *time.Location
}

// ValidationError reports a missing or invalid configuration value
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}

// LoadConfig loads configuration from environment variables. Each env file
// is loaded first when it exists; variables already set in the process
// environment take precedence.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	loc, err := time.LoadLocation(getEnv("SYNC_TIMEZONE", "Local"))
	if err != nil {
		return nil, &ValidationError{Field: "SYNC_TIMEZONE", Message: err.Error()}
	}

	cfg := &Config{
		Jira:  LoadJiraConfig(),
		Store: LoadStoreConfig(),
		Sync: &SyncConfig{
			CheckpointDir:   getEnv("CHECKPOINT_DIR", "."),
			Kinds:           getEnvAsStringSlice("SYNC_KINDS", []string{KindIssues, KindDisciplines}),
			MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
			Location:        loc,
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Jira == nil {
		return &ValidationError{Field: "jira", Message: "configuration is required"}
	}
	if err := c.Jira.Validate(); err != nil {
		return err
	}

	if c.Store == nil {
		return &ValidationError{Field: "store", Message: "configuration is required"}
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}

	if c.Sync == nil {
		return &ValidationError{Field: "sync", Message: "configuration is required"}
	}
	if len(c.Sync.Kinds) == 0 {
		return &ValidationError{Field: "SYNC_KINDS", Message: "at least one record kind is required"}
	}
	for _, kind := range c.Sync.Kinds {
		if kind != KindIssues && kind != KindDisciplines {
			return &ValidationError{Field: "SYNC_KINDS", Message: fmt.Sprintf("unknown record kind %q", kind)}
		}
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringSlice parses a comma-separated list, dropping blanks
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}
