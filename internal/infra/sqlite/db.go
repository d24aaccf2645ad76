// Package sqlite provides SQLite-based persistent storage for QuoteFlow.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Quotation audit trail: one row per dispatched task, updated
		// as the workflow advances.
		`CREATE TABLE IF NOT EXISTS quotation_audit (
			tracking_id  TEXT PRIMARY KEY,
			status       TEXT NOT NULL,
			input_json   TEXT NOT NULL,
			output_json  TEXT,
			error        TEXT,
			started_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_status ON quotation_audit(status)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_updated ON quotation_audit(updated_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Audit Trail ────────────────────────────────────────────────────────────

// AuditEntry is one row of the quotation audit trail.
type AuditEntry struct {
	TrackingID string
	Status     string
	InputJSON  string
	OutputJSON string
	Error      string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// BeginAudit records a newly dispatched task with its request payload.
func (d *DB) BeginAudit(trackingID, status, inputJSON string) error {
	now := time.Now().Unix()
	_, err := d.db.Exec(
		`INSERT INTO quotation_audit (tracking_id, status, input_json, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(tracking_id) DO UPDATE SET
			status=excluded.status,
			input_json=excluded.input_json,
			updated_at=excluded.updated_at`,
		trackingID, status, inputJSON, now, now,
	)
	return err
}

// MarkAudit updates the status of an in-flight task.
func (d *DB) MarkAudit(trackingID, status string) error {
	_, err := d.db.Exec(
		`UPDATE quotation_audit SET status = ?, updated_at = ? WHERE tracking_id = ?`,
		status, time.Now().Unix(), trackingID,
	)
	return err
}

// FinishAudit records the terminal outcome. Exactly one of outputJSON
// and errMsg should be non-empty.
func (d *DB) FinishAudit(trackingID, status, outputJSON, errMsg string) error {
	_, err := d.db.Exec(
		`UPDATE quotation_audit
		 SET status = ?, output_json = NULLIF(?, ''), error = NULLIF(?, ''), updated_at = ?
		 WHERE tracking_id = ?`,
		status, outputJSON, errMsg, time.Now().Unix(), trackingID,
	)
	return err
}

// GetAudit retrieves one audit row, or nil when the id is unknown.
func (d *DB) GetAudit(trackingID string) (*AuditEntry, error) {
	row := d.db.QueryRow(
		`SELECT tracking_id, status, input_json, output_json, error, started_at, updated_at
		 FROM quotation_audit WHERE tracking_id = ?`, trackingID,
	)
	return scanAudit(row)
}

// ListAudits returns the most recent entries, newest first.
func (d *DB) ListAudits(limit int) ([]AuditEntry, error) {
	rows, err := d.db.Query(
		`SELECT tracking_id, status, input_json, output_json, error, started_at, updated_at
		 FROM quotation_audit ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// PurgeAudits deletes entries not updated since the cutoff and returns
// the number removed.
func (d *DB) PurgeAudits(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	result, err := d.db.Exec(
		`DELETE FROM quotation_audit WHERE updated_at < ?`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAudit(s scanner) (*AuditEntry, error) {
	var e AuditEntry
	var output, errMsg sql.NullString
	var startedAt, updatedAt int64

	err := s.Scan(&e.TrackingID, &e.Status, &e.InputJSON,
		&output, &errMsg, &startedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	e.OutputJSON = output.String
	e.Error = errMsg.String
	e.StartedAt = time.Unix(startedAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return &e, nil
}
