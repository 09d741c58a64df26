package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	instanceID := "contract-test-instance-" + time.Now().Format("20060102150405")

	newState := func(id string) *domain.FlowState {
		return &domain.FlowState{
			InstanceID: id,
			Flow:       "contract",
			Current:    2,
			Status:     domain.StatusActive,
			Variables:  map[string]any{"name": "hero", "hp": 42.0, "tags": []any{"a", "b"}},
			History:    []int{0, 1, 2},
			Steps:      2,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		state := newState(instanceID)
		require.NoError(t, store.Save(ctx, instanceID, state), "Save should not return error")

		loaded, err := store.Load(ctx, instanceID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state, loaded, "numbers are stored as float64 so states round trip exactly")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		state := newState(instanceID)
		state.Current = 3
		state.Status = domain.StatusTerminated
		require.NoError(t, store.Save(ctx, instanceID, state))

		loaded, err := store.Load(ctx, instanceID)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Current)
		assert.True(t, loaded.Terminated())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+instanceID)
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, instanceID, newState(instanceID)))
		require.NoError(t, store.Delete(ctx, instanceID), "Delete should not return error")

		_, err := store.Load(ctx, instanceID)
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound, "Load after Delete should return ErrInstanceNotFound")

		assert.NoError(t, store.Delete(ctx, instanceID), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := instanceID + "-1"
		id2 := instanceID + "-2"
		require.NoError(t, store.Save(ctx, id1, newState(id1)))
		require.NoError(t, store.Save(ctx, id2, newState(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
