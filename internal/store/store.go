//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

package store

import (
	"context"
	"fmt"
	"time"
)

// Message represents a persisted chat message.
type Message struct {
	ID        string
	Username  string
	Text      string
	Timestamp time.Time
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage durably writes one message. Messages are never updated.
	AppendMessage(ctx context.Context, msg *Message) error

	// RecentMessages returns up to limit most recent messages, oldest first.
	RecentMessages(ctx context.Context, limit int) ([]*Message, error)

	// CountMessages returns the total number of stored messages.
	CountMessages(ctx context.Context) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}

// Error reports a failed storage operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TimestampLayout is the persisted and wire format of message timestamps:
// ISO-8601 in UTC with millisecond precision, so lexical order matches time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a persisted timestamp, accepting any RFC 3339 value.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
