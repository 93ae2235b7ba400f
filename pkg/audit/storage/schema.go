package storage

// SchemaVersion is bumped on any incompatible schema change.
const SchemaVersion = 1

// Schema creates the audit tables and indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id            TEXT PRIMARY KEY,
    request_id    TEXT NOT NULL,
    kind          TEXT NOT NULL,
    firm_name     TEXT NOT NULL,
    employee_id   TEXT NOT NULL DEFAULT '',
    query         TEXT NOT NULL DEFAULT '',
    ticker        TEXT NOT NULL DEFAULT '',
    action        TEXT NOT NULL DEFAULT '',
    trade_date    TEXT NOT NULL DEFAULT '',
    allowed       INTEGER NOT NULL DEFAULT 0,
    reasons       TEXT NOT NULL DEFAULT '[]',
    rules_checked INTEGER NOT NULL DEFAULT 0,
    rule_count    INTEGER NOT NULL DEFAULT 0,
    iterations    INTEGER NOT NULL DEFAULT 0,
    error         TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    recorded_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_firm ON audit_records(firm_name);
CREATE INDEX IF NOT EXISTS idx_audit_employee ON audit_records(employee_id);
CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_records(kind);

CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version, idempotently.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version) VALUES (?);
`

// GetSchemaVersion reads the highest applied schema version.
const GetSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`
