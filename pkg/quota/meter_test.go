package quota

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestMeter(t *testing.T, limit int) *Meter {
	t.Helper()
	m, err := NewMeter(filepath.Join(t.TempDir(), "quota.db"), limit)
	if err != nil {
		t.Fatalf("NewMeter failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCharge(t *testing.T) {
	ctx := context.Background()

	t.Run("charges count toward the daily limit", func(t *testing.T) {
		m := newTestMeter(t, 3)
		for i := 0; i < 3; i++ {
			if err := m.Charge(ctx, "acme"); err != nil {
				t.Fatalf("charge %d failed: %v", i+1, err)
			}
		}

		err := m.Charge(ctx, "acme")
		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("error = %v, want ExhaustedError", err)
		}
		if exhausted.Limit != 3 {
			t.Errorf("limit = %d", exhausted.Limit)
		}

		used, err := m.Used(ctx, "acme")
		if err != nil || used != 3 {
			t.Errorf("used = %d err = %v", used, err)
		}
	})

	t.Run("firm name variants share one budget", func(t *testing.T) {
		m := newTestMeter(t, 2)
		if err := m.Charge(ctx, "Acme Corp"); err != nil {
			t.Fatal(err)
		}
		if err := m.Charge(ctx, "acme   corp"); err != nil {
			t.Fatal(err)
		}
		if err := m.Charge(ctx, "ACME CORP"); err == nil {
			t.Fatal("expected shared budget to be exhausted")
		}
	})

	t.Run("budgets are per firm", func(t *testing.T) {
		m := newTestMeter(t, 1)
		if err := m.Charge(ctx, "acme"); err != nil {
			t.Fatal(err)
		}
		if err := m.Charge(ctx, "globex"); err != nil {
			t.Errorf("other firm blocked: %v", err)
		}
	})

	t.Run("budget resets at the UTC day boundary", func(t *testing.T) {
		m := newTestMeter(t, 1)
		day := time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return day }

		if err := m.Charge(ctx, "acme"); err != nil {
			t.Fatal(err)
		}
		if err := m.Charge(ctx, "acme"); err == nil {
			t.Fatal("expected exhaustion")
		}

		m.now = func() time.Time { return day.Add(2 * time.Hour) }
		if err := m.Charge(ctx, "acme"); err != nil {
			t.Errorf("charge after rollover failed: %v", err)
		}
	})

	t.Run("zero limit disables metering", func(t *testing.T) {
		m := newTestMeter(t, 0)
		for i := 0; i < 100; i++ {
			if err := m.Charge(ctx, "acme"); err != nil {
				t.Fatalf("charge failed: %v", err)
			}
		}
	})
}
