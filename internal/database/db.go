package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airwatch/internal/metrics"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

// DB represents the database connection
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// NewDB opens a database and initializes the schema.
// driver is "mysql" or "sqlite"; for mysql the dsn looks like
// "user:pass@tcp(localhost:3306)/airwatch?parseTime=true", for sqlite it is a
// file path or ":memory:".
func NewDB(driver, dsn string) (*DB, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == "sqlite" {
		// one connection keeps ":memory:" databases shared and writes serialized
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	db := &DB{conn: conn, dialect: d}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := db.initDefaultSettings(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize settings: %w", err)
	}

	slog.Debug("database ready", "driver", driver)
	return db, nil
}

// Driver returns the dialect name the database was opened with.
func (db *DB) Driver() string {
	return db.dialect.name
}

// initSchema creates the necessary tables, one statement per Exec
func (db *DB) initSchema() error {
	for _, stmt := range db.dialect.schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// exec runs a statement and records its duration against table.
func (db *DB) exec(ctx context.Context, queryType, table, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(queryType, table, time.Since(start), err)
	return res, err
}

func (db *DB) query(ctx context.Context, table, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", table, time.Since(start), err)
	return rows, err
}

func (db *DB) recordStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

// Ping checks the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
