package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.FlowState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.FlowState),
	}
}

// Save persists a deep copy of the state.
func (s *Store) Save(_ context.Context, instanceID string, state *domain.FlowState) error {
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[instanceID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the stored state.
func (s *Store) Load(_ context.Context, instanceID string) (*domain.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[instanceID]
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}
	return state.Clone(), nil
}

// Delete removes the state.
func (s *Store) Delete(_ context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, instanceID)
	return nil
}

// List returns the stored instance ids in ascending order.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
