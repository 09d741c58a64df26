package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
)

func corridor(t *testing.T, name string, rooms ...string) *domain.Graph {
	t.Helper()
	b := dsl.New(name)
	prev := b.Entry("start")
	for _, room := range rooms {
		prev.Go(room)
		prev = b.State(room)
	}
	prev.Go("end")
	b.Exit("end")
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestLiveEngine_Follow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := memory.NewLoader(corridor(t, "v1", "hall"))
	engine, err := gameflow.Load(ctx, loader)
	require.NoError(t, err)

	live := NewLiveEngine(engine, logging.NewNop())
	require.NoError(t, live.Follow(ctx))

	state, err := live.Start(ctx, "i-1", nil)
	require.NoError(t, err)
	state, err = live.Step(ctx, state, domain.Tick())
	require.NoError(t, err)
	assert.Equal(t, "v1", state.Flow)

	loader.Set(corridor(t, "v2", "hall", "stairs"))
	assert.Eventually(t, func() bool {
		return live.Current().Flow().Name == "v2"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, live.Current().Flow().Nodes, 4)

	assert.Error(t, NewLiveEngine(mustCompile(t, corridor(t, "fixed")), logging.NewNop()).Follow(ctx), "compiled graphs have no source to watch")
}

func mustCompile(t *testing.T, g *domain.Graph) *gameflow.Engine {
	t.Helper()
	e, err := gameflow.Compile(g)
	require.NoError(t, err)
	return e
}
