// Package audit defines the audit trail for policy ingestions and
// compliance checks. Regulators ask "who was told what, and why"; the
// audit log is the answer.
package audit

import (
	"context"
	"time"
)

// Record kinds.
const (
	KindIngest = "ingest"
	KindCheck  = "check"
)

// Record is one audited event: a policy ingestion or a compliance check.
type Record struct {
	// ID is a UUID v4 assigned at recording time.
	ID string `json:"id"`

	// RequestID ties the record to the HTTP request that caused it.
	RequestID string `json:"request_id"`

	// Kind is KindIngest or KindCheck.
	Kind string `json:"kind"`

	FirmName   string `json:"firm_name"`
	EmployeeID string `json:"employee_id,omitempty"`

	// Query is the raw natural-language question (checks only).
	Query string `json:"query,omitempty"`

	// Parsed trade question (checks only).
	Ticker    string `json:"ticker,omitempty"`
	Action    string `json:"action,omitempty"`
	TradeDate string `json:"trade_date,omitempty"`

	// Outcome.
	Allowed      bool     `json:"allowed"`
	Reasons      []string `json:"reasons,omitempty"`
	RulesChecked int      `json:"rules_checked"`

	// Synthesis outcome (ingestions only).
	RuleCount  int `json:"rule_count,omitempty"`
	Iterations int `json:"iterations,omitempty"`

	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Query filters stored records. Zero-valued fields do not filter.
type Query struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Kind       string `json:"kind,omitempty"`
	FirmName   string `json:"firm_name,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
	Ticker     string `json:"ticker,omitempty"`

	// Allowed filters by outcome when non-nil.
	Allowed *bool `json:"allowed,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Storage is an audit record sink. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching the filters, newest first.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, q *Query) (int64, error)

	// DeleteBefore removes records recorded before the cutoff, returning
	// the number deleted. Used by retention pruning.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the backend's resources.
	Close() error
}
