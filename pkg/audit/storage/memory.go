package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"clearpath-hq/sentinel/pkg/audit"
)

// MemoryStorage is an in-memory audit backend for tests and ephemeral
// deployments. Records vanish on process exit.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.Record
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of the record.
func (m *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	clone := *record
	m.mu.Lock()
	m.records = append(m.records, &clone)
	m.mu.Unlock()
	return nil
}

// Query returns matching records, newest first.
func (m *MemoryStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*audit.Record
	for _, r := range m.records {
		if matches(r, q) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].RecordedAt.After(matched[j].RecordedAt)
	})

	if q != nil && q.Limit > 0 {
		start := min(q.Offset, len(matched))
		end := min(start+q.Limit, len(matched))
		matched = matched[start:end]
	}
	return matched, nil
}

// Count returns the number of matching records.
func (m *MemoryStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, r := range m.records {
		if matches(r, q) {
			count++
		}
	}
	return count, nil
}

// DeleteBefore removes records recorded before the cutoff.
func (m *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// Close is a no-op.
func (m *MemoryStorage) Close() error { return nil }

func matches(r *audit.Record, q *audit.Query) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && r.RecordedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.RecordedAt.After(*q.EndTime) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.FirmName != "" && r.FirmName != q.FirmName {
		return false
	}
	if q.EmployeeID != "" && r.EmployeeID != q.EmployeeID {
		return false
	}
	if q.Ticker != "" && r.Ticker != q.Ticker {
		return false
	}
	if q.Allowed != nil && r.Allowed != *q.Allowed {
		return false
	}
	return true
}
