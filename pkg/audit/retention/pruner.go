// Package retention enforces the audit log's retention policy by deleting
// records past their keep window, on demand or on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clearpath-hq/sentinel/pkg/audit"
)

// Config configures retention pruning.
type Config struct {
	// RetentionDays is the keep window. Zero disables pruning.
	RetentionDays int

	// PruneSchedule is a standard cron expression; empty disables the
	// scheduler.
	PruneSchedule string
}

// DefaultConfig keeps records for one year and prunes nightly.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 365,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner deletes audit records older than the retention window.
type Pruner struct {
	storage audit.Storage
	config  *Config
	logger  *slog.Logger
}

// NewPruner creates a pruner.
func NewPruner(storage audit.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
	}
}

// Prune deletes expired records and returns the count deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)

	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention pruning failed: %w", err)
	}
	if deleted > 0 {
		p.logger.Info("pruned expired audit records",
			"deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}
