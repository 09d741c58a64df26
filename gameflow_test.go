package gameflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
	"github.com/aretw0/gameflow/pkg/registry"
)

const questYAML = `name: quest
variables:
  xp: int
nodes:
  - name: start
    kind: entry
    next: reward
  - name: reward
    kind: action
    behavior: increment
    params:
      var: xp
      by: 10
    next: done
  - name: done
    kind: exit
`

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(questYAML), 0o644))

	eng, err := gameflow.LoadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "quest", eng.Flow().Name)
	require.NotNil(t, eng.Graph())
	assert.Len(t, eng.Inspect(), 3)

	state, err := eng.Start(ctx, "p1", nil)
	require.NoError(t, err)
	state, err = eng.Advance(ctx, state, 10)
	require.NoError(t, err)
	assert.True(t, state.Terminated())
	assert.Equal(t, float64(10), state.Variables["xp"])
}

func TestReloadAndWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	b := dsl.New("v1")
	b.Entry("start").Go("end")
	b.Exit("end")
	g1, err := b.Build()
	require.NoError(t, err)

	loader := memory.NewLoader(g1)
	eng, err := gameflow.Load(ctx, loader)
	require.NoError(t, err)

	changes, err := eng.Watch(ctx)
	require.NoError(t, err)

	b = dsl.New("v2")
	b.Entry("start").Go("middle")
	b.State("middle").Go("end")
	b.Exit("end")
	g2, err := b.Build()
	require.NoError(t, err)
	loader.Set(g2)

	select {
	case <-changes:
	case <-ctx.Done():
		t.Fatal("no change notification")
	}

	next, err := eng.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", next.Flow().Name)
	assert.Equal(t, "v1", eng.Flow().Name, "the old engine keeps its flow")
}

func TestCompileErrors(t *testing.T) {
	b := dsl.New("broken")
	b.Entry("start").Go("check")
	b.Condition("check").When("no_such_predicate", nil).True("end").False("end")
	b.Exit("end")
	g, err := b.Build()
	require.NoError(t, err)

	_, err = gameflow.Compile(g)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = gameflow.New(nil)
	assert.Error(t, err)

	eng, err := gameflow.Compile(g, gameflow.WithBehaviors(customPredicates()))
	require.NoError(t, err)
	_, err = eng.Watch(context.Background())
	assert.Error(t, err, "engines without a loader cannot watch")
	_, err = eng.Reload(context.Background())
	assert.Error(t, err)
}

func customPredicates() *registry.Registry {
	r := registry.NewRegistry()
	r.RegisterPredicate("no_such_predicate", func(context.Context, domain.Scope) (bool, error) {
		return true, nil
	})
	return r
}

func TestBreakpointOption(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("walk")
	b.Entry("a").Go("b")
	b.State("b").Go("c")
	b.Exit("c")
	g, err := b.Build()
	require.NoError(t, err)
	flow, err := compiler.Compile(g)
	require.NoError(t, err)

	eng, err := gameflow.New(flow, gameflow.WithBreakpoints(1), gameflow.WithHistoryLimit(1))
	require.NoError(t, err)

	state, err := eng.Start(ctx, "w", nil)
	require.NoError(t, err)
	state, err = eng.Advance(ctx, state, 10)
	require.True(t, errors.Is(err, domain.ErrBreakpoint))
	assert.Equal(t, 1, state.Current)

	state, err = eng.Advance(ctx, state, 10)
	require.NoError(t, err)
	assert.True(t, state.Terminated())
	assert.Equal(t, []int{2}, state.History)
}
