package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// FileName is the ledger database name inside the log directory.
const FileName = "ledaps.db"

// ErrSchemaMismatch indicates the database was created by a different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = time.RFC3339Nano
)

// Store records per-year update outcomes.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordYear appends rec and returns its row id.
func (s *Store) RecordYear(ctx context.Context, rec YearRecord) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(rec.RunID) == "" {
		return 0, errors.New("ledger record requires a run id")
	}
	if rec.Status == "" {
		return 0, errors.New("ledger record requires a status")
	}
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = finished
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `INSERT INTO year_runs
			(run_id, mode, year, status, days_converted, days_failed, purged, error_kind, error_message, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.Mode, rec.Year, string(rec.Status), rec.DaysConverted, rec.DaysFailed, rec.Purged,
			rec.ErrorKind, rec.ErrorMessage, started.UTC().Format(timeLayout), finished.UTC().Format(timeLayout),
		)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert year record: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]YearRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx, `SELECT id, run_id, mode, year, status, days_converted, days_failed, purged,
		error_kind, error_message, started_at, finished_at
		FROM year_runs ORDER BY id DESC LIMIT ?`, limit)
}

// Run returns the records of one update run in processing order.
func (s *Store) Run(ctx context.Context, runID string) ([]YearRecord, error) {
	return s.query(ctx, `SELECT id, run_id, mode, year, status, days_converted, days_failed, purged,
		error_kind, error_message, started_at, finished_at
		FROM year_runs WHERE run_id = ? ORDER BY id ASC`, runID)
}

// LastForYear returns the most recent record for year.
func (s *Store) LastForYear(ctx context.Context, year int) (YearRecord, bool, error) {
	records, err := s.query(ctx, `SELECT id, run_id, mode, year, status, days_converted, days_failed, purged,
		error_kind, error_message, started_at, finished_at
		FROM year_runs WHERE year = ? ORDER BY id DESC LIMIT 1`, year)
	if err != nil || len(records) == 0 {
		return YearRecord{}, false, err
	}
	return records[0], true, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]YearRecord, error) {
	ctx = ensureContext(ctx)
	var records []YearRecord
	err := retryOnBusy(ctx, func() error {
		records = records[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query year records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (YearRecord, error) {
	var (
		rec               YearRecord
		status            string
		started, finished string
	)
	if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Mode, &rec.Year, &status, &rec.DaysConverted,
		&rec.DaysFailed, &rec.Purged, &rec.ErrorKind, &rec.ErrorMessage, &started, &finished); err != nil {
		return YearRecord{}, fmt.Errorf("scan year record: %w", err)
	}
	rec.Status = Status(status)
	rec.StartedAt = parseTime(started)
	rec.FinishedAt = parseTime(finished)
	return rec, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
