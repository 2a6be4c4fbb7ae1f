package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.RunStore backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and initializes the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	store, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New initializes the required schema in the given database and returns a Store.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			concept TEXT NOT NULL,
			language TEXT NOT NULL,
			status TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			output_reference TEXT NOT NULL DEFAULT '',
			evaluation_revisions INTEGER NOT NULL DEFAULT 0,
			render_revisions INTEGER NOT NULL DEFAULT 0,
			steps INTEGER NOT NULL DEFAULT 0,
			trail TEXT NOT NULL DEFAULT '[]',
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC);`,
	)
	return err
}

// Save inserts or replaces the record.
func (s *Store) Save(ctx context.Context, r domain.RunRecord) error {
	trail, err := json.Marshal(r.Trail)
	if err != nil {
		return fmt.Errorf("failed to encode trail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, concept, language, status, category, message, output_reference,
			evaluation_revisions, render_revisions, steps, trail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			concept = excluded.concept,
			language = excluded.language,
			status = excluded.status,
			category = excluded.category,
			message = excluded.message,
			output_reference = excluded.output_reference,
			evaluation_revisions = excluded.evaluation_revisions,
			render_revisions = excluded.render_revisions,
			steps = excluded.steps,
			trail = excluded.trail,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		r.ID,
		r.Concept,
		r.Language,
		string(r.Status),
		string(r.Category),
		r.Message,
		r.OutputReference,
		r.Counters.EvaluationRevisions,
		r.Counters.RenderRevisions,
		r.Steps,
		string(trail),
		toUnix(r.StartedAt),
		toUnix(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, concept, language, status, category, message, output_reference,
	evaluation_revisions, render_revisions, steps, trail, started_at, finished_at FROM runs`

// Load retrieves a record by ID.
func (s *Store) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, domain.ErrRunNotFound
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return r, nil
}

// List returns records, most recently started first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	records := []domain.RunRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (domain.RunRecord, error) {
	var (
		r                   domain.RunRecord
		status, category    string
		trail               string
		startedAt, finished int64
	)
	err := sc.Scan(
		&r.ID,
		&r.Concept,
		&r.Language,
		&status,
		&category,
		&r.Message,
		&r.OutputReference,
		&r.Counters.EvaluationRevisions,
		&r.Counters.RenderRevisions,
		&r.Steps,
		&trail,
		&startedAt,
		&finished,
	)
	if err != nil {
		return domain.RunRecord{}, err
	}
	r.Status = domain.Status(status)
	r.Category = domain.ErrorCategory(category)
	if err := json.Unmarshal([]byte(trail), &r.Trail); err != nil {
		return domain.RunRecord{}, fmt.Errorf("failed to decode trail: %w", err)
	}
	r.StartedAt = fromUnix(startedAt)
	r.FinishedAt = fromUnix(finished)
	return r, nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
