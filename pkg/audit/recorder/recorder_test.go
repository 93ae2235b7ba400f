package recorder

import (
	"context"
	"testing"
	"time"

	"clearpath-hq/sentinel/pkg/audit"
	"clearpath-hq/sentinel/pkg/audit/storage"
)

func TestRecorder(t *testing.T) {
	t.Run("records are persisted asynchronously", func(t *testing.T) {
		mem := storage.NewMemoryStorage()
		r := NewRecorder(mem, nil)

		r.Record(&audit.Record{
			Kind:     audit.KindCheck,
			FirmName: "acme",
			Ticker:   "AAPL",
			Allowed:  false,
		})
		r.Close()

		out, err := mem.Query(context.Background(), nil)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(out) != 1 {
			t.Fatalf("records = %d, want 1", len(out))
		}
		if out[0].ID == "" {
			t.Error("record not assigned an ID")
		}
		if out[0].RecordedAt.IsZero() {
			t.Error("record not timestamped")
		}
	})

	t.Run("disabled recorder writes nothing", func(t *testing.T) {
		mem := storage.NewMemoryStorage()
		cfg := DefaultConfig()
		cfg.Enabled = false
		r := NewRecorder(mem, cfg)

		r.Record(&audit.Record{Kind: audit.KindIngest, FirmName: "acme"})
		r.Close()

		count, _ := mem.Count(context.Background(), nil)
		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})

	t.Run("close drains the queue", func(t *testing.T) {
		mem := storage.NewMemoryStorage()
		cfg := DefaultConfig()
		cfg.Buffer = 100
		r := NewRecorder(mem, cfg)

		for i := 0; i < 50; i++ {
			r.Record(&audit.Record{Kind: audit.KindCheck, FirmName: "acme", RecordedAt: time.Now().UTC()})
		}
		r.Close()

		count, _ := mem.Count(context.Background(), nil)
		if count != 50 {
			t.Errorf("count = %d, want 50", count)
		}
	})
}
