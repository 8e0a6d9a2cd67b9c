// pkg/connector/store.go
package connector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/danexplore/JiraSQL/pkg/config"
)

func init() {
	// sqlx only knows the cgo driver name
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// SQLite pragmas applied to every pooled connection
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(10000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// StoreConnector implements DatabaseConnector for the relational store
type StoreConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.StoreConfig
}

var _ DatabaseConnector = (*StoreConnector)(nil)

// NewStoreConnector opens and verifies the store configured by cfg
func NewStoreConnector(ctx context.Context, cfg *config.StoreConfig) (*StoreConnector, error) {
	logger := zap.L().Named("store-connector")

	dsn := cfg.DataSourceName()
	switch cfg.Driver {
	case config.DriverSQLite:
		logger.Info("Opening SQLite store", zap.String("path", cfg.SQLitePath))
		dsn = SQLiteDSN(cfg.SQLitePath)
	default:
		logger.Info("Connecting to PostgreSQL",
			zap.String("driver", cfg.Driver),
			zap.String("host", cfg.Postgres.Host),
			zap.Int("port", cfg.Postgres.Port),
			zap.String("database", cfg.Postgres.Database),
			zap.String("user", cfg.Postgres.User))
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s connection: %w", cfg.Driver, err)
	}

	ConfigurePool(db.DB, cfg)

	if err := PingWithTimeout(ctx, db.DB, cfg.PingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s store: %w", cfg.Driver, err)
	}

	connector := &StoreConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogPoolStats(logger, connector.name(), db.DB)
	return connector, nil
}

// SQLiteDSN returns a modernc.org/sqlite DSN for path with the store pragmas
func SQLiteDSN(path string) string {
	params := url.Values{}
	for _, p := range sqlitePragmas {
		params.Add("_pragma", p)
	}
	return "file:" + path + "?" + params.Encode()
}

// DB returns the underlying database handle
func (c *StoreConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName returns the database/sql driver in use
func (c *StoreConnector) DriverName() string {
	return c.cfg.Driver
}

// Validate checks the server version and that the user can create tables
func (c *StoreConnector) Validate(ctx context.Context) error {
	var version string
	versionQuery := "SELECT version()"
	if c.cfg.Driver == config.DriverSQLite {
		versionQuery = "SELECT sqlite_version()"
	}
	if err := c.db.GetContext(ctx, &version, versionQuery); err != nil {
		return fmt.Errorf("failed to query store version: %w", err)
	}
	c.logger.Info("Connected to store",
		zap.String("driver", c.cfg.Driver),
		zap.String("version", version))

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin permission check: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE _permission_check (id INTEGER PRIMARY KEY, test TEXT)"); err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (c *StoreConnector) Close() error {
	c.logger.Info("Closing store connection", zap.String("driver", c.cfg.Driver))
	LogPoolStats(c.logger, c.name(), c.db.DB)
	return c.db.Close()
}

func (c *StoreConnector) name() string {
	if c.cfg.Driver == config.DriverSQLite {
		return c.cfg.SQLitePath
	}
	return strings.TrimSpace(c.cfg.Postgres.Database)
}
