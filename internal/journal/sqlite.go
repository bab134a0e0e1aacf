package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dupdrive/internal/dedupe"
	"dupdrive/internal/journal/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ScanEntry is the journaled headline of one scan.
type ScanEntry struct {
	ID              string
	ScannedAt       time.Time
	ScanPath        string
	TotalFiles      int
	ScannedFiles    int
	DuplicateGroups int
	DuplicateFiles  int
	Pairs           int
	UncertainGroups int
	SkippedFiles    int
	SavingsBytes    int64
}

// DecisionEntry is one journaled decision. Later entries for the same
// checksum supersede earlier ones; nothing is ever updated in place.
type DecisionEntry struct {
	ID            int64
	ScanID        string
	Checksum      string
	Action        string
	KeepFileID    string
	DeleteFileIDs []string
	DecidedAt     time.Time
}

// Operation is a persisted CLI operation.
type Operation struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Operation  string
	Parameters string
	Status     string
}

// SQLiteJournal is the audit trail of scans, decisions and operations.
type SQLiteJournal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ dedupe.Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal opens the journal at path and brings its schema up to date.
// path can be a file path or ":memory:".
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}
	return &SQLiteJournal{db: db, path: path, now: time.Now}, nil
}

// OpenConnection opens and configures a SQLite connection.
// An in-memory database is pinned to a single connection so every query sees the same schema.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Scan and decision records

func (j *SQLiteJournal) RecordScan(scan *dedupe.ScanResult, summary dedupe.ScanSummary) error {
	_, err := j.db.Exec(`INSERT INTO scans (id, scanned_at, scan_path, total_files, scanned_files,
		duplicate_groups, duplicate_files, pairs, uncertain_groups, skipped_files, savings_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.ScannedAt.UTC(), scan.ScanPath, scan.TotalFiles, scan.ScannedFiles,
		summary.Groups, summary.Files, summary.Pairs, summary.Uncertain, summary.Skipped, summary.Savings)
	if err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}
	return nil
}

// RecordDecision appends d to the decision trail. Delete ids are stored as a JSON array.
func (j *SQLiteJournal) RecordDecision(scanID string, d dedupe.Decision) error {
	deleteIDs := d.DeleteIDs
	if deleteIDs == nil {
		deleteIDs = []string{}
	}
	encoded, err := json.Marshal(deleteIDs)
	if err != nil {
		return fmt.Errorf("encoding delete ids: %w", err)
	}
	_, err = j.db.Exec(`INSERT INTO decision_events (scan_id, checksum, action, keep_file_id, delete_file_ids, decided_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		scanID, d.Checksum, string(d.Action), d.KeepID, string(encoded), d.DecidedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording decision: %w", err)
	}
	return nil
}

// ListScans returns the most recent scans first.
func (j *SQLiteJournal) ListScans(limit int) ([]*ScanEntry, error) {
	rows, err := j.db.Query(`SELECT id, scanned_at, scan_path, total_files, scanned_files, duplicate_groups,
		duplicate_files, pairs, uncertain_groups, skipped_files, savings_bytes
		FROM scans ORDER BY scanned_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	defer rows.Close()

	var out []*ScanEntry
	for rows.Next() {
		var e ScanEntry
		if err := rows.Scan(&e.ID, &e.ScannedAt, &e.ScanPath, &e.TotalFiles, &e.ScannedFiles, &e.DuplicateGroups,
			&e.DuplicateFiles, &e.Pairs, &e.UncertainGroups, &e.SkippedFiles, &e.SavingsBytes); err != nil {
			return nil, fmt.Errorf("reading scan: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return out, nil
}

// ListDecisions returns the most recent decisions first.
func (j *SQLiteJournal) ListDecisions(limit int) ([]*DecisionEntry, error) {
	return j.queryDecisions(`SELECT id, scan_id, checksum, action, keep_file_id, delete_file_ids, decided_at
		FROM decision_events ORDER BY id DESC LIMIT ?`, limit)
}

// DecisionsForChecksum returns every decision made for one group, oldest first.
func (j *SQLiteJournal) DecisionsForChecksum(checksum string) ([]*DecisionEntry, error) {
	return j.queryDecisions(`SELECT id, scan_id, checksum, action, keep_file_id, delete_file_ids, decided_at
		FROM decision_events WHERE checksum = ? ORDER BY id`, checksum)
}

func (j *SQLiteJournal) queryDecisions(query string, args ...any) ([]*DecisionEntry, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()

	var out []*DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var deleteIDs string
		if err := rows.Scan(&e.ID, &e.ScanID, &e.Checksum, &e.Action, &e.KeepFileID, &deleteIDs, &e.DecidedAt); err != nil {
			return nil, fmt.Errorf("reading decision: %w", err)
		}
		e.DeleteFileIDs = []string{}
		if err := json.Unmarshal([]byte(deleteIDs), &e.DeleteFileIDs); err != nil {
			return nil, fmt.Errorf("decoding delete ids of decision %d: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	return out, nil
}

// Operation tracking

func (j *SQLiteJournal) CreateOperation(operation, parameters string) (*Operation, error) {
	op := &Operation{StartedAt: j.now().UTC(), Operation: operation, Parameters: parameters, Status: "running"}
	res, err := j.db.Exec(`INSERT INTO operations (started_at, operation, parameters, status) VALUES (?, ?, ?, ?)`,
		op.StartedAt, op.Operation, op.Parameters, op.Status)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return op, nil
}

func (j *SQLiteJournal) FinishOperation(id int64, status string) error {
	_, err := j.db.Exec(`UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`, j.now().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

// ListOperations returns the most recent operations first.
func (j *SQLiteJournal) ListOperations(limit int) ([]*Operation, error) {
	rows, err := j.db.Query(`SELECT id, started_at, finished_at, operation, parameters, status
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var out []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.StartedAt, &op.FinishedAt, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("reading operation: %w", err)
		}
		out = append(out, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return out, nil
}

// Path returns the journal file path (or ":memory:").
func (j *SQLiteJournal) Path() string {
	return j.path
}

// CheckMigrations verifies the journal schema is up-to-date.
func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckStatus(j.db)
}

// BackupTo writes a complete copy of the journal to destPath using VACUUM INTO.
func (j *SQLiteJournal) BackupTo(destPath string) error {
	if _, err := j.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up journal: %w", err)
	}
	return nil
}

// Close closes the journal connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
