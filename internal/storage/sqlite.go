package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"goals_bot/internal/model"
	"goals_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const entryColumns = `id, url, title, category, state, outcome, queued_at, processed_at`

// SQLite implements Ledger backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection keeps ":memory:" databases shared between goroutines
	// and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// IsProcessed checks whether an item has reached the processed state.
func (s *SQLite) IsProcessed(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger WHERE id = ? AND state = ?`,
		id, string(model.StateProcessed),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}
	return count > 0, nil
}

// MarkQueued records an item as queued for delivery.
func (s *SQLite) MarkQueued(ctx context.Context, item model.Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger (id, url, title, category, state, queued_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		item.ID, item.URL, item.Title, item.Category, string(model.StateQueued), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}
	return nil
}

// MarkProcessed records the terminal outcome of an item.
func (s *SQLite) MarkProcessed(ctx context.Context, id string, outcome model.Outcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger (id, state, outcome, processed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE
		 SET state = excluded.state, outcome = excluded.outcome, processed_at = excluded.processed_at
		 WHERE ledger.state <> excluded.state`,
		id, string(model.StateProcessed), string(outcome), s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// EvictExpired deletes processed entries older than retention.
func (s *SQLite) EvictExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ledger WHERE state = ? AND processed_at < ?`,
		string(model.StateProcessed), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("evict expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Get returns the ledger entry of an item.
func (s *SQLite) Get(ctx context.Context, id string) (*model.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger WHERE id = ?`, id,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListQueued returns all queued entries, oldest first.
func (s *SQLite) ListQueued(ctx context.Context) ([]model.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger WHERE state = ? ORDER BY queued_at, id`,
		string(model.StateQueued),
	)
	if err != nil {
		return nil, fmt.Errorf("query queued: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// ListRecent returns up to limit processed entries, newest first.
func (s *SQLite) ListRecent(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger WHERE state = ?
		 ORDER BY processed_at DESC, id LIMIT ?`,
		string(model.StateProcessed), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Counts returns the number of entries per state.
func (s *SQLite) Counts(ctx context.Context) (map[model.LedgerState]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM ledger GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[model.LedgerState]int{
		model.StateQueued:    0,
		model.StateProcessed: 0,
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[model.LedgerState(state)] = n
	}
	return counts, rows.Err()
}

func (s *SQLite) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (model.LedgerEntry, error) {
	var e model.LedgerEntry
	var state, outcome string
	var queued, processed sql.NullString
	err := row.Scan(&e.ID, &e.URL, &e.Title, &e.Category, &state, &outcome, &queued, &processed)
	if errors.Is(err, sql.ErrNoRows) {
		return e, err
	}
	if err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	e.State = model.LedgerState(state)
	e.Outcome = model.Outcome(outcome)
	e.QueuedAt = parseTime(queued)
	e.ProcessedAt = parseTime(processed)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func parseTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}
