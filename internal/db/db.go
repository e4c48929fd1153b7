// Package db provides SQLite database access for the in-app engine.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tOgg1/inapp/internal/logging"
)

// Config contains database connection settings.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// MaxConnections is the maximum number of open connections.
	MaxConnections int

	// BusyTimeoutMs is how long SQLite waits on a locked database.
	BusyTimeoutMs int
}

// DB wraps a SQLite connection pool.
type DB struct {
	*sql.DB
	path   string
	logger zerolog.Logger
}

// Open creates or opens a SQLite database at cfg.Path.
// The parent directory is created if needed. Call MigrateUp before use.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("cannot create database directory: %w", err)
		}
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}
	if cfg.BusyTimeoutMs <= 0 {
		cfg.BusyTimeoutMs = 5000
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeoutMs)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxConnections)

	return &DB{
		DB:     sqlDB,
		path:   cfg.Path,
		logger: logging.Component("db"),
	}, nil
}

// OpenInMemory opens a private in-memory database. Used by tests.
func OpenInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{DB: sqlDB, path: ":memory:", logger: logging.Component("db")}, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Transaction runs fn in a transaction, committing on success.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// migrations are applied in order; the index+1 is the schema version.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS messages (
		id                  TEXT PRIMARY KEY,
		position            INTEGER NOT NULL,
		priority            REAL NOT NULL DEFAULT 0,
		trigger_kind        TEXT NOT NULL,
		campaign_id         INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT,
		expires_at          TEXT,
		save_to_inbox       INTEGER NOT NULL DEFAULT 0,
		silent_inbox        INTEGER NOT NULL DEFAULT 0,
		read                INTEGER NOT NULL DEFAULT 0,
		consumed            INTEGER NOT NULL DEFAULT 0,
		did_process_trigger INTEGER NOT NULL DEFAULT 0,
		pinned              INTEGER NOT NULL DEFAULT 0,
		content             TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_messages_position ON messages(position);

	CREATE TABLE IF NOT EXISTS events (
		id            TEXT PRIMARY KEY,
		timestamp     TEXT NOT NULL,
		type          TEXT NOT NULL,
		entity_type   TEXT NOT NULL,
		entity_id     TEXT NOT NULL,
		payload_json  TEXT,
		metadata_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp, id);
	CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);
	`,
	`
	CREATE TABLE IF NOT EXISTS inbox_sessions (
		id                   TEXT PRIMARY KEY,
		start_time           TEXT NOT NULL,
		end_time             TEXT NOT NULL,
		total_message_count  INTEGER NOT NULL,
		unread_message_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inbox_impressions (
		session_id     TEXT NOT NULL REFERENCES inbox_sessions(id) ON DELETE CASCADE,
		message_id     TEXT NOT NULL,
		silent_inbox   INTEGER NOT NULL DEFAULT 0,
		first_shown_at TEXT NOT NULL,
		display_count  INTEGER NOT NULL,
		duration_ms    INTEGER NOT NULL,
		PRIMARY KEY (session_id, message_id)
	);
	`,
}

// MigrateUp applies pending migrations and returns how many were applied.
func (db *DB) MigrateUp(ctx context.Context) (int, error) {
	var current int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	applied := 0
	for version := current; version < len(migrations); version++ {
		stmt := migrations[version]
		err := db.Transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, version+1))
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migration %d failed: %w", version+1, err)
		}
		applied++
	}

	if applied > 0 {
		db.logger.Debug().Int("applied", applied).Int("version", len(migrations)).Msg("schema migrated")
	}
	return applied, nil
}

// SchemaVersion returns the number of applied migrations.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
