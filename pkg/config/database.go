// pkg/config/database.go
package config

import (
	"fmt"
	"time"
)

// Supported store drivers
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig holds the relational store connection parameters
type StoreConfig struct {
	Driver string

	Postgres *PostgresConfig

	// SQLitePath is the database file used by the sqlite driver
	SQLitePath string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	PingTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Statement timeout, sent as a runtime parameter
	StatementTimeout time.Duration
}

// LoadStoreConfig loads store configuration from environment variables
func LoadStoreConfig() *StoreConfig {
	return &StoreConfig{
		Driver:     getEnv("STORE_DRIVER", DriverPgx),
		Postgres:   LoadPostgresConfig(),
		SQLitePath: getEnv("SQLITE_PATH", "jirasql.db"),

		MaxOpenConns:    getEnvAsInt("STORE_MAX_OPEN_CONNS", 4),
		MaxIdleConns:    getEnvAsInt("STORE_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(getEnvAsInt("STORE_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("STORE_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		PingTimeout:     time.Duration(getEnvAsInt("STORE_PING_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		Database: getEnv("POSTGRES_DB", ""),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		StatementTimeout: time.Duration(getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}
}

// Validate checks the settings required by the selected driver
func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case DriverPgx, DriverPostgres:
		if c.Postgres == nil {
			return &ValidationError{Field: "postgres", Message: "configuration is required"}
		}
		return c.Postgres.Validate()
	case DriverSQLite:
		if c.SQLitePath == "" {
			return &ValidationError{Field: "SQLITE_PATH", Message: "environment variable is required"}
		}
		return nil
	default:
		return &ValidationError{Field: "STORE_DRIVER", Message: fmt.Sprintf("unsupported driver %q", c.Driver)}
	}
}

// Validate checks that the PostgreSQL credentials are present
func (c *PostgresConfig) Validate() error {
	if c.User == "" {
		return &ValidationError{Field: "POSTGRES_USER", Message: "environment variable is required"}
	}
	if c.Database == "" {
		return &ValidationError{Field: "POSTGRES_DB", Message: "environment variable is required"}
	}
	return nil
}

// DataSourceName returns the DSN for the selected driver
func (c *StoreConfig) DataSourceName() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}
	return c.Postgres.ConnectionString()
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)

	if c.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", c.StatementTimeout.Milliseconds())
	}

	return dsn
}
