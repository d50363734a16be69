package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"wondernav/pkg/logging"
)

// SQLiteStore is a single-file chat store for local development.
type SQLiteStore struct {
	db *sql.DB
}

// output is nullable so a half-written row reads back as a miss, like a DynamoDB item without its value attribute.
const createChatsTable = `
CREATE TABLE IF NOT EXISTS chats (
	input TEXT NOT NULL PRIMARY KEY,
	output TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open chats db: %w", err)
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createChatsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate chats db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	var output sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT output FROM chats WHERE input = ?`, key,
	).Scan(&output)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &LookupError{Backend: "sqlite", Err: err}
	}

	if !output.Valid {
		logging.L(ctx).Warn("chat_record_malformed",
			zap.String("key", key),
			zap.String("reason", "output is NULL"),
		)
		return "", false, nil
	}

	return output.String, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chats (input, output, created_at) VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return &WriteError{Backend: "sqlite", Err: err}
	}
	return nil
}

// Count returns the number of stored chats.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
