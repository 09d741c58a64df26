package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

var _ ports.StateStore = (*memory.Store)(nil)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	state := &domain.FlowState{InstanceID: "a", Status: domain.StatusActive, Variables: map[string]any{"hp": 1.0}}
	require.NoError(t, store.Save(ctx, "a", state))

	state.Variables["hp"] = 99.0
	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, loaded.Variables["hp"], "Save copies")

	loaded.Variables["hp"] = 50.0
	again, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Variables["hp"], "Load copies")
}
