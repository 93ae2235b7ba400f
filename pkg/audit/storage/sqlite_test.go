package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clearpath-hq/sentinel/pkg/audit"
)

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")
	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func checkRecord(id, firm string, allowed bool, at time.Time) *audit.Record {
	return &audit.Record{
		ID:           id,
		RequestID:    "req-" + id,
		Kind:         audit.KindCheck,
		FirmName:     firm,
		EmployeeID:   "EMP002",
		Query:        "Can I buy Apple stock?",
		Ticker:       "AAPL",
		Action:       "buy",
		TradeDate:    "2026-08-26",
		Allowed:      allowed,
		Reasons:      []string{"restricted ticker"},
		RulesChecked: 1,
		DurationMS:   42,
		RecordedAt:   at,
	}
}

func TestSQLiteStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("store and query round trip", func(t *testing.T) {
		s := newTestSQLite(t)
		in := checkRecord("r1", "acme", false, time.Now().UTC())
		if err := s.Store(ctx, in); err != nil {
			t.Fatalf("Store failed: %v", err)
		}

		out, err := s.Query(ctx, &audit.Query{FirmName: "acme"})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(out) != 1 {
			t.Fatalf("records = %d, want 1", len(out))
		}
		got := out[0]
		if got.ID != "r1" || got.Ticker != "AAPL" || got.Allowed || got.RulesChecked != 1 {
			t.Errorf("record = %+v", got)
		}
		if len(got.Reasons) != 1 || got.Reasons[0] != "restricted ticker" {
			t.Errorf("reasons = %v", got.Reasons)
		}
	})

	t.Run("filters compose", func(t *testing.T) {
		s := newTestSQLite(t)
		now := time.Now().UTC()
		_ = s.Store(ctx, checkRecord("r1", "acme", false, now))
		_ = s.Store(ctx, checkRecord("r2", "acme", true, now))
		_ = s.Store(ctx, checkRecord("r3", "globex", false, now))

		denied := false
		out, err := s.Query(ctx, &audit.Query{FirmName: "acme", Allowed: &denied})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(out) != 1 || out[0].ID != "r1" {
			t.Errorf("records = %+v", out)
		}

		count, err := s.Count(ctx, &audit.Query{Kind: audit.KindCheck})
		if err != nil || count != 3 {
			t.Errorf("count = %d err = %v", count, err)
		}
	})

	t.Run("newest first with pagination", func(t *testing.T) {
		s := newTestSQLite(t)
		base := time.Now().UTC().Add(-time.Hour)
		for i, id := range []string{"old", "mid", "new"} {
			_ = s.Store(ctx, checkRecord(id, "acme", true, base.Add(time.Duration(i)*time.Minute)))
		}

		out, err := s.Query(ctx, &audit.Query{Limit: 2})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(out) != 2 || out[0].ID != "new" || out[1].ID != "mid" {
			t.Errorf("page = %+v", out)
		}
	})

	t.Run("delete before cutoff", func(t *testing.T) {
		s := newTestSQLite(t)
		now := time.Now().UTC()
		_ = s.Store(ctx, checkRecord("stale", "acme", true, now.AddDate(0, 0, -400)))
		_ = s.Store(ctx, checkRecord("fresh", "acme", true, now))

		deleted, err := s.DeleteBefore(ctx, now.AddDate(0, 0, -365))
		if err != nil {
			t.Fatalf("DeleteBefore failed: %v", err)
		}
		if deleted != 1 {
			t.Errorf("deleted = %d, want 1", deleted)
		}
		count, _ := s.Count(ctx, nil)
		if count != 1 {
			t.Errorf("remaining = %d, want 1", count)
		}
	})
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	now := time.Now().UTC()

	_ = s.Store(ctx, checkRecord("r1", "acme", false, now.Add(-time.Minute)))
	_ = s.Store(ctx, checkRecord("r2", "acme", true, now))

	out, err := s.Query(ctx, &audit.Query{FirmName: "acme"})
	if err != nil || len(out) != 2 || out[0].ID != "r2" {
		t.Errorf("records = %+v err = %v", out, err)
	}

	deleted, _ := s.DeleteBefore(ctx, now.Add(-30*time.Second))
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
