package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS processed (
	stage      TEXT NOT NULL,
	key        TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (stage, key)
)`

// SQLiteBackend stores processed keys in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create processed table: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) Load(ctx context.Context, stage Stage) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key FROM processed WHERE stage = ? ORDER BY key`, string(stage))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Save inserts the keys that are not stored yet. The set only grows through
// Save, so inserting the whole set in one transaction is a full rewrite.
func (b *SQLiteBackend) Save(ctx context.Context, stage Stage, keys []string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO processed (stage, key, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, string(stage), key, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s key: %w", stage, err)
		}
	}

	return tx.Commit()
}

func (b *SQLiteBackend) Reset(ctx context.Context, stage Stage) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM processed WHERE stage = ?`, string(stage))
	return err
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
