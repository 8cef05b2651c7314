// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps resolved records in a SQLite database so reports can
// be produced later without the cache or the network. Each record is stored
// once under its key (preprint id, else remote id); later runs update it.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/inspireq/internal/logging"
	"github.com/pdiddy/inspireq/pkg/types"
)

// DefaultPath is the catalog location used when none is configured.
const DefaultPath = "inspireq.db"

// Store manages the catalog database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalog at path and creates the schema if it
// does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			resolved INTEGER NOT NULL DEFAULT 0,
			invalid INTEGER NOT NULL DEFAULT 0,
			unresolved INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			input_id TEXT NOT NULL,
			namespace TEXT NOT NULL,
			remote_id TEXT,
			title TEXT,
			preprint_date TEXT,
			pub_date TEXT,
			sort_date TEXT,
			journal_info TEXT,
			doi TEXT,
			extra TEXT,
			fields TEXT NOT NULL,
			run_id TEXT REFERENCES runs(id),
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_sort_date ON records(sort_date)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Run describes one fetch run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Resolved   int
	Invalid    int
	Unresolved int
	Failed     int
}

// RecordRun inserts or updates a run row.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	finished := ""
	if !r.FinishedAt.IsZero() {
		finished = r.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, resolved, invalid, unresolved, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			finished_at=excluded.finished_at, resolved=excluded.resolved,
			invalid=excluded.invalid, unresolved=excluded.unresolved, failed=excluded.failed`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), finished,
		r.Resolved, r.Invalid, r.Unresolved, r.Failed,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.ID, err)
	}
	return nil
}

// Runs returns all runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, resolved, invalid, unresolved, failed
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Resolved, &r.Invalid, &r.Unresolved, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started.String)
		if finished.Valid && finished.String != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// UpsertSummary holds counts from an Upsert.
type UpsertSummary struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Total returns the number of records seen.
func (s UpsertSummary) Total() int {
	return s.Inserted + s.Updated + s.Skipped
}

// Upsert stores every valid record under its key in one transaction.
// Invalid records and records without a key are skipped.
func (s *Store) Upsert(ctx context.Context, runID string, recs []*types.ResolvedRecord) (UpsertSummary, error) {
	log := logging.NewLogger("catalog")
	var summary UpsertSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if runID != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO runs (id, started_at) VALUES (?, ?)`,
			runID, time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return summary, fmt.Errorf("inserting run stub: %w", err)
		}
	}

	exists, err := tx.PrepareContext(ctx, `SELECT 1 FROM records WHERE key = ?`)
	if err != nil {
		return summary, fmt.Errorf("preparing lookup: %w", err)
	}
	defer exists.Close()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (key, input_id, namespace, remote_id, title, preprint_date, pub_date,
			sort_date, journal_info, doi, extra, fields, run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			input_id=excluded.input_id, namespace=excluded.namespace, remote_id=excluded.remote_id,
			title=excluded.title, preprint_date=excluded.preprint_date, pub_date=excluded.pub_date,
			sort_date=excluded.sort_date, journal_info=excluded.journal_info, doi=excluded.doi,
			extra=excluded.extra, fields=excluded.fields, run_id=excluded.run_id,
			updated_at=excluded.updated_at`)
	if err != nil {
		return summary, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, rec := range recs {
		if rec == nil || !rec.Valid || rec.Key() == "" {
			summary.Skipped++
			continue
		}
		key := rec.Key()

		fieldsJSON, err := json.Marshal(rec.Fields)
		if err != nil {
			return summary, fmt.Errorf("marshaling fields of %s: %w", key, err)
		}
		var extraJSON []byte
		if len(rec.Identifier.Extra) > 0 {
			extraJSON, _ = json.Marshal(rec.Identifier.Extra)
		}

		var one int
		err = exists.QueryRowContext(ctx, key).Scan(&one)
		isUpdate := err == nil
		if err != nil && err != sql.ErrNoRows {
			return summary, fmt.Errorf("looking up %s: %w", key, err)
		}

		_, err = stmt.ExecContext(ctx,
			key, rec.Identifier.Value, rec.Identifier.Namespace.String(), nullString(rec.RemoteID),
			rec.Fields.Title, rec.Fields.PreprintDate, rec.Fields.PubDate,
			nullString(rec.SortDate()), rec.Fields.JournalInfo, rec.Fields.DOI,
			nullString(string(extraJSON)), string(fieldsJSON), nullString(runID), now,
		)
		if err != nil {
			return summary, fmt.Errorf("upserting %s: %w", key, err)
		}

		if isUpdate {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing: %w", err)
	}
	log.Debug().
		Str("run_id", runID).
		Int("inserted", summary.Inserted).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Msg("catalog updated")
	return summary, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
