// Package storage defines the dedup ledger interface and its implementations.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"goals_bot/internal/model"
)

// ErrNotFound is returned when the ledger has no entry for an item.
var ErrNotFound = errors.New("ledger entry not found")

// Ledger records which items have been queued and processed.
// Implementations must make every mutation of a single id atomic.
type Ledger interface {
	// IsProcessed reports whether handling of the item has completed.
	// Queued items are not processed.
	IsProcessed(ctx context.Context, id string) (bool, error)
	// MarkQueued stores the item payload in the queued state. It is a no-op
	// when the item already has an entry.
	MarkQueued(ctx context.Context, item model.Item) error
	// MarkProcessed moves the item to the terminal state, creating the entry
	// if needed. It is a no-op when the item is already processed.
	MarkProcessed(ctx context.Context, id string, outcome model.Outcome) error
	// EvictExpired deletes processed entries older than retention.
	// Queued entries are never evicted.
	EvictExpired(ctx context.Context, retention time.Duration) (int64, error)

	Get(ctx context.Context, id string) (*model.LedgerEntry, error)
	ListQueued(ctx context.Context) ([]model.LedgerEntry, error)
	ListRecent(ctx context.Context, limit int) ([]model.LedgerEntry, error)
	Counts(ctx context.Context) (map[model.LedgerState]int, error)

	Close() error
}

// Open returns the ledger for dsn. Redis URLs select the Redis ledger,
// anything else is treated as a SQLite database path.
func Open(ctx context.Context, dsn string) (Ledger, error) {
	if IsRedisDSN(dsn) {
		return NewRedis(ctx, dsn)
	}
	return NewSQLite(dsn)
}

// IsRedisDSN reports whether dsn addresses a Redis server.
func IsRedisDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://")
}
