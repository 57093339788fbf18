package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/relaychat/internal/store"
)

const schema = `
	CREATE TABLE IF NOT EXISTS messages (
		id        TEXT PRIMARY KEY,
		username  TEXT NOT NULL,
		text      TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and ensures the schema exists.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests that need a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection keeps the write path serialized and makes :memory: usable.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate creates the messages table and its index if missing.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendMessage persists a message.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) error {
	if msg == nil {
		return &store.Error{Op: "append", Err: errors.New("nil message")}
	}
	query := `
		INSERT INTO messages (id, username, text, timestamp)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.Username, msg.Text, store.FormatTimestamp(msg.Timestamp))
	if err != nil {
		return &store.Error{Op: "append", Err: fmt.Errorf("insert message: %w", err)}
	}
	return nil
}

// RecentMessages returns up to limit newest messages in ascending timestamp order.
// Equal timestamps fall back to insertion order.
func (s *SQLiteStore) RecentMessages(ctx context.Context, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		return []*store.Message{}, nil
	}

	query := `
		SELECT id, username, text, timestamp
		FROM messages
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, &store.Error{Op: "recent", Err: fmt.Errorf("query messages: %w", err)}
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, limit)
	for rows.Next() {
		var (
			msg store.Message
			ts  string
		)
		if err := rows.Scan(&msg.ID, &msg.Username, &msg.Text, &ts); err != nil {
			return nil, &store.Error{Op: "recent", Err: fmt.Errorf("scan message: %w", err)}
		}
		msg.Timestamp, err = store.ParseTimestamp(ts)
		if err != nil {
			return nil, &store.Error{Op: "recent", Err: fmt.Errorf("parse timestamp of %s: %w", msg.ID, err)}
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.Error{Op: "recent", Err: fmt.Errorf("iterate messages: %w", err)}
	}

	// Query runs newest first; callers get chronological order.
	slices.Reverse(messages)
	return messages, nil
}

// CountMessages returns the number of stored messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		return 0, &store.Error{Op: "count", Err: fmt.Errorf("count messages: %w", err)}
	}
	return count, nil
}
