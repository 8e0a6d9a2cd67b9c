// pkg/connector/connector.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/config"
)

// DatabaseConnector is an open, validated store handle
type DatabaseConnector interface {
	// DB returns the underlying database handle
	DB() *sqlx.DB

	// DriverName returns the database/sql driver in use
	DriverName() string

	// Validate verifies the connection and permissions
	Validate(ctx context.Context) error

	// Close closes the connection and releases resources
	Close() error
}

// PoolStats is the part of sql.DBStats worth reporting after a run
type PoolStats struct {
	MaxOpen      int
	Open         int
	InUse        int
	Idle         int
	WaitCount    int64
	WaitDuration time.Duration
}

// StatsOf samples the pool of db
func StatsOf(db *sql.DB) PoolStats {
	s := db.Stats()
	return PoolStats{
		MaxOpen:      s.MaxOpenConnections,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}
}

// LogPoolStats logs the pool of the named store at debug level
func LogPoolStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := StatsOf(db)
	logger.Debug("Connection pool stats",
		zap.String("store", name),
		zap.Int("maxOpen", stats.MaxOpen),
		zap.Int("open", stats.Open),
		zap.Int("inUse", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int64("waitCount", stats.WaitCount),
		zap.Duration("waitDuration", stats.WaitDuration))
}

// PingWithTimeout pings db, giving up after timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if pingCtx.Err() != nil {
			return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
		}
		return err
	}
	return nil
}

// ConfigurePool applies the pool limits of cfg. SQLite allows a single
// writer, so its pool is pinned to one connection whatever cfg says.
func ConfigurePool(db *sql.DB, cfg *config.StoreConfig) {
	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Driver == config.DriverSQLite {
		maxOpen, maxIdle = 1, 1
	}

	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
