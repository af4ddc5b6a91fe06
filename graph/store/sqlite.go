package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/graphrun/graphrun/graph"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in a single-file SQLite database. Zero-setup
// persistence for development and single-process deployments; use ":memory:"
// as the path for throwaway databases in tests.
//
// WAL mode is enabled so readers are not blocked by the single writer.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS graphs (
	id         TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	graph_id   TEXT NOT NULL,
	record     TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_graph_id ON runs(graph_id);
`

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite supports a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// PutGraph stores or overwrites a graph record.
func (s *SQLiteStore) PutGraph(ctx context.Context, rec GraphRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("graph record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding graph record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graphs (id, record, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET record = excluded.record, created_at = excluded.created_at`,
		rec.ID, string(data), rec.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"))
	if err != nil {
		return fmt.Errorf("storing graph %s: %w", rec.ID, err)
	}
	return nil
}

// GetGraph retrieves a graph record by id.
func (s *SQLiteStore) GetGraph(ctx context.Context, id string) (GraphRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM graphs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return GraphRecord{}, ErrNotFound
	}
	if err != nil {
		return GraphRecord{}, fmt.Errorf("loading graph %s: %w", id, err)
	}

	var rec GraphRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return GraphRecord{}, fmt.Errorf("decoding graph record: %w", err)
	}
	return rec, nil
}

// ListGraphs returns all graph records ordered by creation time.
func (s *SQLiteStore) ListGraphs(ctx context.Context) ([]GraphRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM graphs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing graphs: %w", err)
	}
	defer rows.Close()

	var recs []GraphRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning graph record: %w", err)
		}
		var rec GraphRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding graph record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// PutRun stores or overwrites a run record.
func (s *SQLiteStore) PutRun(ctx context.Context, run *graph.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, graph_id, record, started_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET graph_id = excluded.graph_id, record = excluded.record, started_at = excluded.started_at`,
		run.ID, run.GraphID, string(data), run.StartedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"))
	if err != nil {
		return fmt.Errorf("storing run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun retrieves a run record by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*graph.Run, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM runs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	var run graph.Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("decoding run record: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs for one graph (or all when graphID is empty) ordered
// by start time.
func (s *SQLiteStore) ListRuns(ctx context.Context, graphID string) ([]*graph.Run, error) {
	query := `SELECT record FROM runs ORDER BY started_at, id`
	args := []any{}
	if graphID != "" {
		query = `SELECT record FROM runs WHERE graph_id = ? ORDER BY started_at, id`
		args = append(args, graphID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*graph.Run
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		var run graph.Run
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			return nil, fmt.Errorf("decoding run record: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
