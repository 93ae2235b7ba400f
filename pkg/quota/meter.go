// Package quota meters LLM generation calls per firm per UTC day. Each
// generation attempt, initial or revision, charges one unit; an exhausted
// budget rejects further ingestion work until the day rolls over.
package quota

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"clearpath-hq/sentinel/pkg/store"
)

// ExhaustedError reports a firm that has spent its daily budget.
type ExhaustedError struct {
	Firm  string
	Limit int
	Day   string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("firm %q exhausted its daily generation budget (%d) for %s", e.Firm, e.Limit, e.Day)
}

const schema = `
CREATE TABLE IF NOT EXISTS generation_quota (
    firm_key   TEXT NOT NULL,
    day        TEXT NOT NULL,
    used       INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (firm_key, day)
);
`

// Meter is a SQLite-backed daily counter. Counters survive restarts so a
// crash-looping service cannot burn the budget repeatedly.
type Meter struct {
	db         *sql.DB
	dailyLimit int
	mu         sync.Mutex
	logger     *slog.Logger
	now        func() time.Time
}

// NewMeter opens or creates the quota database. dailyLimit <= 0 disables
// metering; Charge always succeeds.
func NewMeter(path string, dailyLimit int) (*Meter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quota database: %w", err)
	}
	// modernc's driver serializes writes itself, but a single connection
	// avoids SQLITE_BUSY under concurrent ingestions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create quota schema: %w", err)
	}

	return &Meter{
		db:         db,
		dailyLimit: dailyLimit,
		logger:     slog.Default().With("component", "quota"),
		now:        time.Now,
	}, nil
}

// Charge spends one unit of the firm's daily budget, failing with
// ExhaustedError when the budget is gone. Firms are keyed by normalized
// name so display variants share one budget.
func (m *Meter) Charge(ctx context.Context, firm string) error {
	if m.dailyLimit <= 0 {
		return nil
	}
	key := store.NormalizeFirmName(firm)
	day := m.now().UTC().Format("2006-01-02")

	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.db.ExecContext(ctx, `
		INSERT INTO generation_quota (firm_key, day, used, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (firm_key, day) DO UPDATE SET
			used = used + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE used < ?`,
		key, day, m.dailyLimit)
	if err != nil {
		return fmt.Errorf("failed to charge quota for %q: %w", firm, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read quota result: %w", err)
	}
	if affected == 0 {
		m.logger.Warn("generation budget exhausted", "firm", key, "day", day, "limit", m.dailyLimit)
		return &ExhaustedError{Firm: firm, Limit: m.dailyLimit, Day: day}
	}
	return nil
}

// Used returns the firm's spend for the current UTC day.
func (m *Meter) Used(ctx context.Context, firm string) (int, error) {
	key := store.NormalizeFirmName(firm)
	day := m.now().UTC().Format("2006-01-02")

	var used int
	err := m.db.QueryRowContext(ctx,
		"SELECT used FROM generation_quota WHERE firm_key = ? AND day = ?",
		key, day).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota for %q: %w", firm, err)
	}
	return used, nil
}

// Close closes the database.
func (m *Meter) Close() error {
	return m.db.Close()
}
