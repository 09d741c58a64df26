package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/adapters/badger"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

var _ ports.StateStore = (*badger.Store)(nil)

func TestBadgerStore_Contract(t *testing.T) {
	store, err := badger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ports.RunStateStoreContract(t, store)
}

func TestBadgerStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := badger.Open(badger.Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	state := &domain.FlowState{InstanceID: "i-1", Flow: "door", Status: domain.StatusActive, Current: 2, Steps: 2}
	require.NoError(t, store.Save(ctx, "i-1", state))
	require.NoError(t, store.Close())

	reopened, err := badger.Open(badger.Config{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	loaded, err := reopened.Load(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
	assert.NoError(t, reopened.RunGC(0.5))
}

func TestBadgerStore_RequiresPath(t *testing.T) {
	_, err := badger.Open(badger.Config{})
	assert.Error(t, err)
}
