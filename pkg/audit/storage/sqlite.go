// Package storage provides audit record backends: SQLite for durable
// deployments and an in-memory store for tests and ephemeral runs.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"clearpath-hq/sentinel/pkg/audit"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns caps the connection pool. Default 10.
	MaxOpenConns int

	// MaxIdleConns caps idle connections. Default 5.
	MaxIdleConns int

	// WALMode enables write-ahead logging for better concurrency.
	// Default true.
	WALMode bool

	// BusyTimeout is how long a writer waits on a locked database.
	// Default 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies the schema, and verifies
// the schema version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.storage.sqlite"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit storage initialized",
		"path", config.Path, "wal_mode", config.WALMode)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("audit schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}
	return nil
}

// Store persists one record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	reasons, err := json.Marshal(record.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			id, request_id, kind, firm_name, employee_id, query,
			ticker, action, trade_date, allowed, reasons, rules_checked,
			rule_count, iterations, error, duration_ms, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RequestID, record.Kind, record.FirmName,
		record.EmployeeID, record.Query, record.Ticker, record.Action,
		record.TradeDate, boolToInt(record.Allowed), string(reasons),
		record.RulesChecked, record.RuleCount, record.Iterations,
		record.Error, record.DurationMS, record.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to store audit record %s: %w", record.ID, err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	where, args := buildWhere(q)
	sqlQuery := `
		SELECT id, request_id, kind, firm_name, employee_id, query,
			ticker, action, trade_date, allowed, reasons, rules_checked,
			rule_count, iterations, error, duration_ms, recorded_at
		FROM audit_records` + where + ` ORDER BY recorded_at DESC`
	if q != nil && q.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("audit query failed: %w", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		var r audit.Record
		var allowed int
		var reasons string
		if err := rows.Scan(
			&r.ID, &r.RequestID, &r.Kind, &r.FirmName, &r.EmployeeID,
			&r.Query, &r.Ticker, &r.Action, &r.TradeDate, &allowed,
			&reasons, &r.RulesChecked, &r.RuleCount, &r.Iterations,
			&r.Error, &r.DurationMS, &r.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		r.Allowed = allowed != 0
		if err := json.Unmarshal([]byte(reasons), &r.Reasons); err != nil {
			return nil, fmt.Errorf("corrupt reasons for record %s: %w", r.ID, err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// Count returns the number of matching records.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	where, args := buildWhere(q)
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("audit count failed: %w", err)
	}
	return count, nil
}

// DeleteBefore removes records recorded before the cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_records WHERE recorded_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("audit delete failed: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func buildWhere(q *audit.Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	var clauses []string
	var args []any
	if q.StartTime != nil {
		clauses = append(clauses, "recorded_at >= ?")
		args = append(args, q.StartTime.UTC())
	}
	if q.EndTime != nil {
		clauses = append(clauses, "recorded_at <= ?")
		args = append(args, q.EndTime.UTC())
	}
	if q.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.FirmName != "" {
		clauses = append(clauses, "firm_name = ?")
		args = append(args, q.FirmName)
	}
	if q.EmployeeID != "" {
		clauses = append(clauses, "employee_id = ?")
		args = append(args, q.EmployeeID)
	}
	if q.Ticker != "" {
		clauses = append(clauses, "ticker = ?")
		args = append(args, q.Ticker)
	}
	if q.Allowed != nil {
		clauses = append(clauses, "allowed = ?")
		args = append(args, boolToInt(*q.Allowed))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
