package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
	"github.com/aretw0/gameflow/pkg/ports/tests"
)

var (
	_ ports.GraphLoader = (*memory.Loader)(nil)
	_ ports.Watchable   = (*memory.Loader)(nil)
)

func graph() *domain.Graph {
	g := domain.NewGraph("mem")
	entry := g.AddNode(domain.KindEntry, domain.Payload{})
	exit := g.AddNode(domain.KindExit, domain.Payload{})
	_ = g.Connect(entry, 0, exit, 0)
	return g
}

func TestMemoryLoader_Contract(t *testing.T) {
	g := graph()
	tests.GraphLoaderContractTest(t, memory.NewLoader(g), g)
}

func TestMemoryLoader_Empty(t *testing.T) {
	_, err := memory.NewLoader(nil).LoadGraph(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryLoader_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loader := memory.NewLoader(graph())

	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	updated := graph()
	updated.Rename("edited")
	loader.Set(updated)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change signal")
	}
	g, err := loader.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, "edited", g.Name())

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("expected the watch channel to close")
	}
}
