package internal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forge-ai/promptforge/shared/events"
)

// Record is an archived generation outcome.
type Record struct {
	events.GenerationOutcome
	CreatedAt time.Time `json:"created_at"`
}

// Store persists outcomes in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Single writer; also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS outcomes (
			id          TEXT PRIMARY KEY,
			model       TEXT NOT NULL,
			status      TEXT NOT NULL,
			problem     TEXT NOT NULL DEFAULT '',
			response    TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			kind        TEXT NOT NULL DEFAULT '',
			samples     INTEGER NOT NULL DEFAULT 0,
			output_dir  TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			delivered   INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_outcomes_created_at
			ON outcomes(created_at);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores o. Redelivered outcomes with a known id are ignored, so Save
// is idempotent. It reports whether a row was inserted.
func (s *Store) Save(ctx context.Context, o events.GenerationOutcome, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (id, model, status, problem, response, error, kind, samples, output_dir, duration_ms, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		o.RequestID, o.Model, o.Status, o.Problem, o.Response, o.Error, o.Kind,
		o.Samples, o.OutputDir, o.DurationMS, o.Delivered, at.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("insert outcome %s: %w", o.RequestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Recent returns up to limit outcomes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, status, problem, response, error, kind, samples, output_dir, duration_ms, delivered, created_at
		FROM outcomes
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			created int64
		)
		if err := rows.Scan(&r.RequestID, &r.Model, &r.Status, &r.Problem, &r.Response, &r.Error, &r.Kind,
			&r.Samples, &r.OutputDir, &r.DurationMS, &r.Delivered, &created); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountByStatus tallies archived outcomes per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outcomes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
