package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// postgresBackend stores history blobs in Postgres for deployments with
// a managed database.
type postgresBackend struct {
	db *sql.DB
}

// NewPostgresStore connects to Postgres with the given connection
// string and returns a HistoryStore backed by it.
func NewPostgresStore(connectionString string) (*HistoryStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	b := &postgresBackend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return &HistoryStore{backend: b}, nil
}

func (b *postgresBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		chat_history TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}
	return nil
}

func (b *postgresBackend) getBlob(ctx context.Context, email string) ([]byte, bool, error) {
	var blob []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT chat_history FROM users WHERE email = $1`, email).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (b *postgresBackend) putBlob(ctx context.Context, email string, blob []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO users (email, chat_history) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET chat_history = EXCLUDED.chat_history
	`, email, string(blob))
	return err
}

func (b *postgresBackend) ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *postgresBackend) close() error {
	return b.db.Close()
}
