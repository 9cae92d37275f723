// Package journal records the terminal outcome of every processed
// message in a local SQLite database, so failures carry enough context
// (sender, message id, failing stage) for manual reprocessing. The
// journal observes the pipeline; it takes no part in its invariants.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Outcome values stored with each record.
const (
	OutcomeLearned = "learned"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Record is one message's terminal state.
type Record struct {
	ID         string
	MessageUID uint32
	MessageID  string
	Sender     string
	Subject    string

	// Stage is the pipeline stage the message reached.
	Stage string

	// Outcome is one of the Outcome* constants.
	Outcome string

	// Error holds the failure description for failed outcomes.
	Error string

	// Provider names the model vendor in use at the time.
	Provider string

	CreatedAt time.Time
}

// Journal is a SQLite-backed append log of processing outcomes.
type Journal struct {
	db *sqlx.DB
}

// Open opens (or creates) the journal database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func Open(dbPath string) (*Journal, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	j := &Journal{db: db}
	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (j *Journal) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := j.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = j.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := j.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Append inserts a record. A missing ID or timestamp is filled in.
func (j *Journal) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO records (
			id, message_uid, message_id, sender, subject,
			stage, outcome, error, provider, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MessageUID, rec.MessageID, rec.Sender, rec.Subject,
		rec.Stage, rec.Outcome, rec.Error, rec.Provider, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending journal record: %w", err)
	}

	return nil
}

// Failures returns the most recent failed records, newest first.
func (j *Journal) Failures(ctx context.Context, limit int) ([]Record, error) {
	return j.query(ctx,
		"SELECT * FROM records WHERE outcome = ? ORDER BY created_at DESC LIMIT ?",
		OutcomeFailed, limit,
	)
}

// Recent returns the most recent records of any outcome, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	return j.query(ctx,
		"SELECT * FROM records ORDER BY created_at DESC LIMIT ?",
		limit,
	)
}

func (j *Journal) query(ctx context.Context, q string, args ...interface{}) ([]Record, error) {
	rows, err := j.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// scanRecord scans a record row from a sqlx.Rows result set.
func scanRecord(rows *sqlx.Rows) (Record, error) {
	var (
		rec       Record
		uid       int64
		createdAt time.Time
	)

	err := rows.Scan(
		&rec.ID, &uid, &rec.MessageID, &rec.Sender, &rec.Subject,
		&rec.Stage, &rec.Outcome, &rec.Error, &rec.Provider, &createdAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scanning journal row: %w", err)
	}

	rec.MessageUID = uint32(uid)
	rec.CreatedAt = createdAt

	return rec, nil
}
