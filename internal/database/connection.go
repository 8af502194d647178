package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Config holds database configuration
type Config struct {
	Path        string
	MaxConns    int
	MaxIdle     int
	MaxConnLife time.Duration
}

// DB wraps a read-only pool of SQLite connections. Every connection of the
// pool is opened with mode=ro so concurrent readers never share a cursor.
type DB struct {
	Pool *sql.DB
	path string
	log  *logrus.Logger
}

// NewConnection opens a read-only connection pool on an existing SQLite file
func NewConnection(ctx context.Context, config Config, logger *logrus.Logger) (*DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if _, err := os.Stat(config.Path); err != nil {
		return nil, fmt.Errorf("stat database file: %w", err)
	}

	pool, err := sql.Open("sqlite", readOnlyDSN(config.Path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Configure connection pool settings
	if config.MaxConns > 0 {
		pool.SetMaxOpenConns(config.MaxConns)
	}
	if config.MaxIdle > 0 {
		pool.SetMaxIdleConns(config.MaxIdle)
	}
	if config.MaxConnLife > 0 {
		pool.SetConnMaxLifetime(config.MaxConnLife)
	}

	// Test the connection
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"path":      config.Path,
		"max_conns": config.MaxConns,
		"max_idle":  config.MaxIdle,
	}).Info("Database connection pool established")

	return &DB{
		Pool: pool,
		path: config.Path,
		log:  logger,
	}, nil
}

// Wrap adopts an already opened pool, used with in-memory fixtures and mocks.
func Wrap(pool *sql.DB, logger *logrus.Logger) *DB {
	return &DB{Pool: pool, path: "", log: logger}
}

// readOnlyDSN builds a modernc sqlite URI DSN for a read-only handle.
func readOnlyDSN(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "query_only(1)")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.WithField("path", db.path).Info("Database connection pool closed")
	}
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.PingContext(ctx)
}

// Stats returns connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.Pool.Stats()
}
