package gameflow_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/pkg/codec"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/registry"
)

const chestYAML = `name: chest
nodes:
  - name: start
    kind: entry
    next: loot
  - name: loot
    kind: action
    behavior: increment
    params: {var: health, by: -2}
    next: reward
  - name: reward
    kind: action
    behavior: set
    params:
      values: {gold: 7}
    next: done
  - name: done
    kind: exit
`

const dungeonYAML = `name: dungeon
nodes:
  - name: start
    kind: entry
    next: open
  - name: open
    kind: action
    behavior: subflow
    params:
      flow: chest
      in: {hp: health}
      out: {gold: gold, health: hp}
    next: done
  - name: done
    kind: exit
`

const fuseYAML = `name: fuse
nodes:
  - name: start
    kind: entry
    next: arm
  - name: arm
    kind: action
    behavior: start_timer
    params: {var: lit}
    next: wait
  - name: wait
    kind: state
    next: ready
  - name: ready
    kind: condition
    behavior: timer
    params: {var: lit, steps: 4}
    on_true: boom
    on_false: wait
  - name: boom
    kind: action
    behavior: log
    params: {message: fuse burnt, level: warn, vars: [lit]}
    next: done
  - name: done
    kind: exit
`

func compileYAML(t *testing.T, src string, opts ...gameflow.Option) *gameflow.Engine {
	t.Helper()
	g, err := codec.DecodeGraph([]byte(src), codec.FormatYAML, "test.yaml")
	require.NoError(t, err)
	eng, err := gameflow.Compile(g, opts...)
	require.NoError(t, err)
	return eng
}

func TestLibrary_RunsSubflow(t *testing.T) {
	ctx := context.Background()
	lib := gameflow.NewLibrary(0)
	reg := registry.NewWithBuiltins()
	registry.RegisterSubflow(reg, lib)

	require.NoError(t, lib.Add(compileYAML(t, chestYAML, gameflow.WithBehaviors(reg))))
	dungeon := compileYAML(t, dungeonYAML, gameflow.WithBehaviors(reg))
	require.NoError(t, lib.Add(dungeon))
	assert.Equal(t, []string{"chest", "dungeon"}, lib.Names())

	state, err := dungeon.Start(ctx, "p1", map[string]any{"hp": 10})
	require.NoError(t, err)
	state, err = dungeon.Advance(ctx, state, 10)
	require.NoError(t, err)
	assert.True(t, state.Terminated())
	assert.Equal(t, 7.0, state.Variables["gold"])
	assert.Equal(t, 8.0, state.Variables["hp"])
	assert.NotContains(t, state.Variables, "health", "child variables stay in the child")

	_, err = lib.RunFlow(ctx, "crypt", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLibrary_RejectsRecursion(t *testing.T) {
	ctx := context.Background()
	lib := gameflow.NewLibrary(0)
	reg := registry.NewWithBuiltins()
	registry.RegisterSubflow(reg, lib)

	self := compileYAML(t, `name: loop
nodes:
  - {name: start, kind: entry, next: again}
  - {name: again, kind: action, behavior: subflow, params: {flow: loop}, next: done}
  - {name: done, kind: exit}
`, gameflow.WithBehaviors(reg))
	assert.ErrorIs(t, lib.Add(self), domain.ErrSubflowRecursion)

	// ping -> pong -> ping is only caught while running.
	ping := compileYAML(t, `name: ping
nodes:
  - {name: start, kind: entry, next: call}
  - {name: call, kind: action, behavior: subflow, params: {flow: pong}, next: done}
  - {name: done, kind: exit}
`, gameflow.WithBehaviors(reg))
	pong := compileYAML(t, `name: pong
nodes:
  - {name: start, kind: entry, next: call}
  - {name: call, kind: action, behavior: subflow, params: {flow: ping}, next: done}
  - {name: done, kind: exit}
`, gameflow.WithBehaviors(reg))
	require.NoError(t, lib.Add(ping))
	require.NoError(t, lib.Add(pong))

	state, err := ping.Start(ctx, "p1", nil)
	require.NoError(t, err)
	_, err = ping.Advance(ctx, state, 10)
	assert.ErrorIs(t, err, domain.ErrSubflowRecursion)
	assert.ErrorIs(t, err, domain.ErrBehaviorFailed)
}

func TestTimerAndLog(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	eng := compileYAML(t, fuseYAML, gameflow.WithLogger(logger))

	state, err := eng.Start(ctx, "p1", nil)
	require.NoError(t, err)
	state, err = eng.Advance(ctx, state, 20)
	require.NoError(t, err)
	assert.True(t, state.Terminated())
	// entry, arm, wait, ready(false), wait, ready(true), boom
	assert.Equal(t, 7, state.Steps)
	assert.Contains(t, buf.String(), `msg="fuse burnt"`)
	assert.Contains(t, buf.String(), "instance=p1")
	assert.Contains(t, buf.String(), "lit=1")
}
