package store

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/contagion/internal/results"
)

type memoryRun struct {
	run     Run
	table   []byte
	beliefs map[string]float64
}

// InMemoryRunStore implements RunStore for testing and one-off runs.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*memoryRun
}

// NewInMemoryRunStore creates a new in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[string]*memoryRun)}
}

// prepare fills in a missing id and creation time.
func prepare(run *Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return nil
}

// SaveRun stores a run; tables are kept in their JSON encoding so the stored
// copy is independent of the caller's.
func (s *InMemoryRunStore) SaveRun(ctx context.Context, run *Run, table *results.Table) error {
	if err := prepare(run); err != nil {
		return err
	}
	var buf bytes.Buffer
	if table != nil {
		if err := table.WriteJSON(&buf); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.runs[run.ID]
	if !ok {
		entry = &memoryRun{}
		s.runs[run.ID] = entry
	}
	entry.run = *run
	entry.table = buf.Bytes()
	return nil
}

// GetRun returns a copy of the run with the given id.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	r := entry.run
	return &r, nil
}

// ListRuns returns matching runs, newest first.
func (s *InMemoryRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Run, 0, len(s.runs))
	for _, entry := range s.runs {
		if filter.match(entry.run) {
			out = append(out, entry.run)
		}
	}
	slices.SortFunc(out, func(a, b Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// LoadTable decodes the stored table of a run.
func (s *InMemoryRunStore) LoadTable(ctx context.Context, id string) (*results.Table, error) {
	s.mu.RLock()
	entry, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if len(entry.table) == 0 {
		return results.NewTable(), nil
	}
	return results.ReadJSON(bytes.NewReader(entry.table), entry.run.Axis)
}

// SaveBeliefs replaces the beliefs of a run.
func (s *InMemoryRunStore) SaveBeliefs(ctx context.Context, id string, beliefs map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	entry.beliefs = maps.Clone(beliefs)
	return nil
}

// LoadBeliefs returns a copy of the beliefs of a run.
func (s *InMemoryRunStore) LoadBeliefs(ctx context.Context, id string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	out := maps.Clone(entry.beliefs)
	if out == nil {
		out = map[string]float64{}
	}
	return out, nil
}

// DeleteRun removes a run and its beliefs.
func (s *InMemoryRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	delete(s.runs, id)
	return nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}
