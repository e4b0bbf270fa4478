package journal

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

func (s *MemoryStore) Save(_ context.Context, run Run) error {
	if err := run.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.TriggerID] = run
	return nil
}

func (s *MemoryStore) Get(_ context.Context, triggerID string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[triggerID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return run, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Run, error) {
	s.mu.RLock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		if filter.matches(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	return sortRuns(out, filter.Limit), nil
}

func (s *MemoryStore) Close() error { return nil }
