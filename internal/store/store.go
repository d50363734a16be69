package store

import (
	"context"
	"fmt"
)

// Default item layout of the chats table.
const (
	DefaultTable          = "WonderNAV-Chats"
	DefaultKeyAttribute   = "input"
	DefaultValueAttribute = "output"
)

//go:generate mockgen -source=store.go -destination=../mocks/store/mock_store.go -package=mock_store ChatStore

// ChatStore is the read-through cache used by the chat handler.
// Implemented by DynamoDB (prod), Redis, SQLite and memory (dev/tests).
//
// Lookup returns found=false with a nil error for a clean miss. A record whose
// value is missing or not text is also reported as a miss.
type ChatStore interface {
	Lookup(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string) error
}

// LookupError reports a transport, permission or service failure during a read.
type LookupError struct {
	Backend string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup failed: %v", e.Backend, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// WriteError reports a failure while persisting a record.
type WriteError struct {
	Backend string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s write failed: %v", e.Backend, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
