package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteBackend stores one history blob per user in a local SQLite file.
type sqliteBackend struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path and
// returns a HistoryStore backed by it. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite handles a single writer; more connections just queue on
	// the busy timeout.
	db.SetMaxOpenConns(1)

	b := &sqliteBackend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return &HistoryStore{backend: b}, nil
}

func (b *sqliteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		chat_history TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

func (b *sqliteBackend) getBlob(ctx context.Context, email string) ([]byte, bool, error) {
	var blob []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT chat_history FROM users WHERE email = ?`, email).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (b *sqliteBackend) putBlob(ctx context.Context, email string, blob []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO users (email, chat_history) VALUES (?, ?)
		ON CONFLICT (email) DO UPDATE SET chat_history = excluded.chat_history
	`, email, string(blob))
	return err
}

func (b *sqliteBackend) ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *sqliteBackend) close() error {
	return b.db.Close()
}
