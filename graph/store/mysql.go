package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/graphrun/graphrun/graph"
)

// MySQLStore persists records in MySQL/MariaDB for deployments where many
// processes share one store. Records are opaque JSON, same shape as every
// other backend; the only relational structure is the id columns used for
// lookup and the graph_id index used by ListRuns.
//
// DSN format is the go-sql-driver one, e.g.
//
//	user:pass@tcp(localhost:3306)/graphrun?parseTime=true
//
// Keep credentials out of source; read the DSN from configuration or the
// environment.
type MySQLStore struct {
	db *sql.DB
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS graphs (
		id         VARCHAR(64) PRIMARY KEY,
		record     MEDIUMTEXT NOT NULL,
		created_at VARCHAR(40) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id         VARCHAR(64) PRIMARY KEY,
		graph_id   VARCHAR(64) NOT NULL,
		record     MEDIUMTEXT NOT NULL,
		started_at VARCHAR(40) NOT NULL,
		INDEX idx_runs_graph_id (graph_id)
	)`,
}

// NewMySQLStore connects to the database named by dsn, verifies the
// connection and runs migrations.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to mysql: %w", err)
	}
	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &MySQLStore{db: db}, nil
}

// PutGraph stores or overwrites a graph record.
func (s *MySQLStore) PutGraph(ctx context.Context, rec GraphRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("graph record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding graph record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO graphs (id, record, created_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE record = VALUES(record), created_at = VALUES(created_at)`,
		rec.ID, string(data), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing graph %s: %w", rec.ID, err)
	}
	return nil
}

// GetGraph retrieves a graph record by id.
func (s *MySQLStore) GetGraph(ctx context.Context, id string) (GraphRecord, error) {
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
func (s *MySQLStore) ListGraphs(ctx context.Context) ([]GraphRecord, error) {
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
func (s *MySQLStore) PutRun(ctx context.Context, run *graph.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, graph_id, record, started_at) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE graph_id = VALUES(graph_id), record = VALUES(record), started_at = VALUES(started_at)`,
		run.ID, run.GraphID, string(data), run.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun retrieves a run record by id.
func (s *MySQLStore) GetRun(ctx context.Context, id string) (*graph.Run, error) {
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
func (s *MySQLStore) ListRuns(ctx context.Context, graphID string) ([]*graph.Run, error) {
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

// Close closes the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
