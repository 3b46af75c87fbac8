package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"goals_bot/internal/model"
)

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	item := model.Item{ID: "k1", URL: "https://streamff.com/v/k1", Title: "Napoli 2-0 Roma"}
	if err := s.MarkQueued(ctx, item); err != nil {
		t.Fatalf("mark queued: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	queued, err := reopened.ListQueued(ctx)
	if err != nil {
		t.Fatalf("list queued: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected 1 queued entry after reopen, got %d", len(queued))
	}
	if diff := cmp.Diff(item, queued[0].Item); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenSelectsSQLite(t *testing.T) {
	l, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	if _, ok := l.(*SQLite); !ok {
		t.Errorf("expected *SQLite, got %T", l)
	}
}
