package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

// mockStore is the smallest StateStore that satisfies the contract.
type mockStore struct {
	mu   sync.Mutex
	data map[string]*domain.FlowState
}

func (m *mockStore) Save(_ context.Context, id string, state *domain.FlowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = state.Clone()
	return nil
}

func (m *mockStore) Load(_ context.Context, id string) (*domain.FlowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.data[id]
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}
	return state.Clone(), nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *mockStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, &mockStore{data: make(map[string]*domain.FlowState)})
}
