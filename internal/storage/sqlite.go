// Package storage keeps small durable settings, such as the selected
// wallpaper, in a single SQLite table.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"livewallpaper/internal/selection"
)

var ErrNotFound = errors.New("setting not found")

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Get returns ErrNotFound when key was never set.
func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

func (s *SQLiteStorage) All(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value, updated_at FROM settings ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []Setting{}
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}

	return settings, rows.Err()
}

// SelectedBackground returns "" when nothing was ever selected.
func (s *SQLiteStorage) SelectedBackground(ctx context.Context) (string, error) {
	name, err := s.Get(ctx, KeySelectedBackground)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return name, err
}

func (s *SQLiteStorage) SetSelectedBackground(ctx context.Context, name string) error {
	return s.Set(ctx, KeySelectedBackground, name)
}

// SelectionConsumer persists every committed selection. The write outlives
// the request that triggered it.
func (s *SQLiteStorage) SelectionConsumer() selection.Consumer {
	return selection.ConsumerFunc(func(ctx context.Context, snap selection.Snapshot) error {
		return s.SetSelectedBackground(context.WithoutCancel(ctx), snap.Name)
	})
}
