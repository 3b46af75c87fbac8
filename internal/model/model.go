// Package model defines the domain types used across the application.
package model

import "time"

// Item is a single feed submission. Items are never mutated after fetching;
// their handling state lives in the ledger.
type Item struct {
	ID       string
	URL      string
	Title    string
	Category string
}

// LedgerState is the handling state of an item in the ledger.
// An item without a ledger entry is unseen.
type LedgerState string

// Ledger states. Transitions are forward-only: queued -> processed.
const (
	StateQueued    LedgerState = "queued"
	StateProcessed LedgerState = "processed"
)

// Outcome records how the handling of an item ended.
type Outcome string

// Supported outcomes.
const (
	OutcomeMedia      Outcome = "media"
	OutcomeLink       Outcome = "link"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeFailed     Outcome = "failed"
	OutcomeRejected   Outcome = "rejected"
)

// LedgerEntry is the ledger record of an item.
type LedgerEntry struct {
	Item
	State       LedgerState
	Outcome     Outcome
	QueuedAt    *time.Time
	ProcessedAt *time.Time
}

// MediaKind is the kind of media a direct URL points to.
type MediaKind string

// Supported media kinds.
const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// Stats is a snapshot of the poll loop's run statistics.
type Stats struct {
	Cycles         int
	LastCycleStart time.Time
	LastCycleEnd   time.Time
	LastFetched    int
	LastAccepted   int
	LastFetchError string
	Recovered      int
	Outcomes       map[Outcome]int
}
