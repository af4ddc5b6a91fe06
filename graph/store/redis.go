package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/graphrun/graphrun/graph"
)

// RedisStore persists records in Redis. Each record is one JSON string key;
// set keys index the graph and run ids plus the runs belonging to each graph
// so lists avoid SCAN.
//
// Key layout (default prefix "graphrun:"):
//
//	graphrun:graph:<id>        graph record JSON
//	graphrun:graphs            set of graph ids
//	graphrun:run:<id>          run record JSON
//	graphrun:runs              set of run ids
//	graphrun:graph_runs:<id>   set of run ids for one graph
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix overrides the default "graphrun:" key prefix, for sharing one
// Redis database between deployments.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store on an existing client. The caller owns the
// client's lifecycle except through Close, which closes it.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: "graphrun:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) graphKey(id string) string { return s.prefix + "graph:" + id }
func (s *RedisStore) runKey(id string) string   { return s.prefix + "run:" + id }

// PutGraph stores or overwrites a graph record.
func (s *RedisStore) PutGraph(ctx context.Context, rec GraphRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("graph record id is required")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding graph record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.graphKey(rec.ID), data, 0)
	pipe.SAdd(ctx, s.prefix+"graphs", rec.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing graph %s: %w", rec.ID, err)
	}
	return nil
}

// GetGraph retrieves a graph record by id.
func (s *RedisStore) GetGraph(ctx context.Context, id string) (GraphRecord, error) {
	data, err := s.client.Get(ctx, s.graphKey(id)).Result()
	if errors.Is(err, redis.Nil) {
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
func (s *RedisStore) ListGraphs(ctx context.Context) ([]GraphRecord, error) {
	ids, err := s.client.SMembers(ctx, s.prefix+"graphs").Result()
	if err != nil {
		return nil, fmt.Errorf("listing graphs: %w", err)
	}

	recs := make([]GraphRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetGraph(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Index entry outlived the record; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sortGraphRecords(recs)
	return recs, nil
}

// PutRun stores or overwrites a run record.
func (s *RedisStore) PutRun(ctx context.Context, run *graph.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run record id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.runKey(run.ID), data, 0)
	pipe.SAdd(ctx, s.prefix+"runs", run.ID)
	if run.GraphID != "" {
		pipe.SAdd(ctx, s.prefix+"graph_runs:"+run.GraphID, run.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun retrieves a run record by id.
func (s *RedisStore) GetRun(ctx context.Context, id string) (*graph.Run, error) {
	data, err := s.client.Get(ctx, s.runKey(id)).Result()
	if errors.Is(err, redis.Nil) {
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
func (s *RedisStore) ListRuns(ctx context.Context, graphID string) ([]*graph.Run, error) {
	indexKey := s.prefix + "runs"
	if graphID != "" {
		indexKey = s.prefix + "graph_runs:" + graphID
	}
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]*graph.Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.GetRun(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
