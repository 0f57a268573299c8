package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/jorei-crawler/internal/progress"
)

const defaultRunsTable = "jorei_runs"

// RunStatus mirrors the runs status column.
type RunStatus string

// Run statuses persisted in the runs table.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// RunStore records one row per crawl run. It consumes progress events, so a
// failed write is logged by the dispatcher and never aborts the crawl.
type RunStore struct {
	pool  execCloser
	table string

	mu      sync.Mutex
	records map[[16]byte]int
}

var _ progress.Sink = (*RunStore)(nil)

// RunStore returns a run log sharing this store's pool. The IndexStore keeps
// ownership of the pool.
func (s *IndexStore) RunStore(table string) (*RunStore, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("index store is not configured")
	}
	return NewRunStoreWithPool(s.pool, table)
}

// NewRunStoreWithPool constructs a run log over pool (primarily for testing).
func NewRunStoreWithPool(pool execCloser, table string) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultRunsTable
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RunStore{pool: pool, table: name, records: make(map[[16]byte]int)}, nil
}

// Consume writes run milestones.
func (s *RunStore) Consume(ctx context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if err := s.consume(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (s *RunStore) consume(ctx context.Context, evt progress.Event) error {
	runID := evt.RunUUID()
	switch evt.Stage {
	case progress.StageRunStart:
		query := fmt.Sprintf(`
INSERT INTO %s (id, started_at, status, total_found, pages, records)
VALUES ($1, $2, $3, $4, 0, 0)
ON CONFLICT (id) DO NOTHING`, s.table)
		if _, err := s.pool.Exec(ctx, query, runID, evt.TS, RunRunning, evt.Total); err != nil {
			return fmt.Errorf("insert run %s: %w", runID, err)
		}
	case progress.StageRecordDone:
		s.mu.Lock()
		s.records[evt.RunID]++
		s.mu.Unlock()
	case progress.StagePageSleep:
		query := fmt.Sprintf(`UPDATE %s SET pages = $1, records = $2 WHERE id = $3`, s.table)
		if _, err := s.pool.Exec(ctx, query, evt.Page+1, s.recordCount(evt.RunID), runID); err != nil {
			return fmt.Errorf("update run %s: %w", runID, err)
		}
	case progress.StageRunDone:
		return s.complete(ctx, evt, RunSuccess, nil)
	case progress.StageRunError:
		note := evt.Note
		return s.complete(ctx, evt, RunError, &note)
	}
	return nil
}

func (s *RunStore) complete(ctx context.Context, evt progress.Event, status RunStatus, errMsg *string) error {
	runID := evt.RunUUID()
	query := fmt.Sprintf(`
UPDATE %s
SET finished_at = $1, status = $2, records = $3, error_message = $4
WHERE id = $5`, s.table)
	if _, err := s.pool.Exec(ctx, query, evt.TS, status, s.recordCount(evt.RunID), errMsg, runID); err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	s.mu.Lock()
	delete(s.records, evt.RunID)
	s.mu.Unlock()
	return nil
}

func (s *RunStore) recordCount(id [16]byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

// Close implements progress.Sink; the pool is closed by its owner.
func (s *RunStore) Close(context.Context) error {
	return nil
}
