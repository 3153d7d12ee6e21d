// Package persistence implements the sqlite-backed store for study tasks
// and the assistant chat transcript.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups for ids that do not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.configurePragmas(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// DB exposes the underlying handle for tests and tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) configurePragmas(ctx context.Context) error {
	pragma := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
	}
	for _, q := range pragma {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("set pragma %q: %w", q, err)
		}
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			deadline TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT 'General',
			priority TEXT NOT NULL DEFAULT 'Medium',
			created_at DATETIME NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create tasks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			message TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create chat_history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_tasks_completed ON tasks(completed);
	`); err != nil {
		return fmt.Errorf("create tasks index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// RetentionResult reports how many rows a retention pass purged.
type RetentionResult struct {
	PurgedChatMessages   int64
	PurgedCompletedTasks int64
}

// RunRetention purges chat messages older than chatDays and completed tasks
// older than completedTaskDays. A zero or negative day count means keep
// forever for that table.
func (s *Store) RunRetention(ctx context.Context, chatDays, completedTaskDays int) (RetentionResult, error) {
	var result RetentionResult

	if chatDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -chatDays)
		res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE timestamp < ?;`, cutoff)
		if err != nil {
			return result, fmt.Errorf("purge chat_history: %w", err)
		}
		result.PurgedChatMessages, _ = res.RowsAffected()
	}

	if completedTaskDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -completedTaskDays)
		res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE completed = 1 AND created_at < ?;`, cutoff)
		if err != nil {
			return result, fmt.Errorf("purge completed tasks: %w", err)
		}
		result.PurgedCompletedTasks, _ = res.RowsAffected()
	}

	return result, nil
}

// Ping verifies the database is reachable. Used by healthz.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1;`).Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
