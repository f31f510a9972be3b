package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter is the transactional fallback backend. Entries live in a
// single kv table that other applications may share; only namespaced rows
// are read or written.
type SQLiteAdapter struct {
	db     *sql.DB
	quota  int64
	logger *slog.Logger
}

// NewSQLiteAdapter opens a SQLite database and runs migrations.
func NewSQLiteAdapter(dbPath string, quota int64, logger *slog.Logger) (*SQLiteAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?cache=shared&mode=rwc&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writers

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if quota <= 0 {
		quota = FallbackQuota
	}
	a := &SQLiteAdapter{db: db, quota: quota, logger: logger}

	if err := a.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite storage initialized", slog.String("path", dbPath))
	return a, nil
}

// Close closes the database connection.
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

// Migrate creates the kv table if it doesn't exist.
func (a *SQLiteAdapter) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
	);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	a.logger.Debug("sqlite storage migration complete")
	return nil
}

func (a *SQLiteAdapter) Name() string { return "sqlite" }

func (a *SQLiteAdapter) Available(ctx context.Context) bool {
	return a.db.PingContext(ctx) == nil
}

func (a *SQLiteAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := a.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, namespaced(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (a *SQLiteAdapter) Set(ctx context.Context, key string, value []byte) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	used, err := sizeOf(ctx, tx)
	if err != nil {
		return err
	}
	var oldLen sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT length(key) + length(value) FROM kv WHERE key = ?`, namespaced(key)).Scan(&oldLen)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("size of %s: %w", key, err)
	}
	if err := checkQuota(used-oldLen.Int64+entrySize(key, value), a.quota); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespaced(key), value,
	); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return tx.Commit()
}

// Replace swaps the namespace inside one transaction.
func (a *SQLiteAdapter) Replace(ctx context.Context, entries map[string][]byte) error {
	var used int64
	for k, v := range entries {
		used += entrySize(k, v)
	}
	if err := checkQuota(used, a.quota); err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE substr(key, 1, ?) = ?`, len(Namespace), Namespace); err != nil {
		return fmt.Errorf("clear namespace: %w", err)
	}
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))`,
			namespaced(k), v,
		); err != nil {
			return fmt.Errorf("insert %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (a *SQLiteAdapter) Remove(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, namespaced(key)); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (a *SQLiteAdapter) Clear(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM kv WHERE substr(key, 1, ?) = ?`, len(Namespace), Namespace); err != nil {
		return fmt.Errorf("clear namespace: %w", err)
	}
	return nil
}

func (a *SQLiteAdapter) Keys(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`, len(Namespace), Namespace)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		if k, ok := logicalKey(name); ok {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

func (a *SQLiteAdapter) Size(ctx context.Context) (int64, error) {
	return sizeOf(ctx, a.db)
}

func (a *SQLiteAdapter) Quota() int64 { return a.quota }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sizeOf(ctx context.Context, q queryer) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT coalesce(sum(length(key) + length(value)), 0) FROM kv WHERE substr(key, 1, ?) = ?`,
		len(Namespace), Namespace,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("query size: %w", err)
	}
	return total, nil
}
