package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/internal/runtime"
	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/adapters/redis"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
	"github.com/aretw0/gameflow/pkg/registry"
	"github.com/aretw0/gameflow/pkg/session"
)

// counterEngine loops an increment until "n" reaches the limit, so lost
// updates between concurrent steps would show in the final count.
func counterEngine(t *testing.T, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	b := dsl.New("counter")
	b.Event("go", nil)
	b.Entry("start").Go("add")
	b.Action("add").Do("increment", map[string]any{"var": "n"}).Go("check")
	b.Condition("check").When("compare", map[string]any{"left": "var.n", "op": ">=", "value": 50}).
		True("end").
		False("add")
	b.Exit("end")
	g, err := b.Build()
	require.NoError(t, err)
	flow, err := compiler.Compile(g)
	require.NoError(t, err)
	e, err := runtime.NewEngine(flow, registry.NewWithBuiltins(), opts...)
	require.NoError(t, err)
	return e
}

func TestManager_StartAndStep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(counterEngine(t), store, session.WithIDGenerator(func() string { return "fixed" }))

	state, err := mgr.Start(ctx, map[string]any{"n": 10})
	require.NoError(t, err)
	assert.Equal(t, "fixed", state.InstanceID)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed"}, ids)

	next, err := mgr.Step(ctx, "fixed", domain.Tick())
	require.NoError(t, err)
	assert.Equal(t, 1, next.Current)

	stored, err := mgr.Load(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, next, stored)

	_, err = mgr.Start(ctx, nil)
	assert.ErrorIs(t, err, session.ErrInstanceExists)
}

func TestManager_RandomIDs(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(counterEngine(t), memory.NewStore())

	a, err := mgr.Start(ctx, nil)
	require.NoError(t, err)
	b, err := mgr.Start(ctx, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.InstanceID, b.InstanceID)
	assert.Len(t, a.InstanceID, 36)
}

func TestManager_FailedStepKeepsStoredState(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(counterEngine(t), memory.NewStore())

	state, err := mgr.StartWithID(ctx, "i-1", nil)
	require.NoError(t, err)

	_, err = mgr.Step(ctx, "i-1", domain.Event{Name: "unknown"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	stored, err := mgr.Load(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, state, stored)

	_, err = mgr.Step(ctx, "missing", domain.Tick())
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
}

func TestManager_BreakpointPersists(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(counterEngine(t, runtime.WithBreakpoints(2)), memory.NewStore())

	_, err := mgr.StartWithID(ctx, "i-1", nil)
	require.NoError(t, err)
	_, err = mgr.Step(ctx, "i-1", domain.Tick())
	require.NoError(t, err)

	paused, err := mgr.Step(ctx, "i-1", domain.Tick())
	assert.ErrorIs(t, err, domain.ErrBreakpoint)
	require.NotNil(t, paused)

	stored, err := mgr.Load(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Current)
}

func TestManager_Terminate(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(counterEngine(t), memory.NewStore())

	_, err := mgr.StartWithID(ctx, "i-1", nil)
	require.NoError(t, err)
	require.NoError(t, mgr.Terminate(ctx, "i-1"))

	_, err = mgr.Load(ctx, "i-1")
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
}

func TestManager_LoadOrStart(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(counterEngine(t), memory.NewStore())

	var wg sync.WaitGroup
	results := make([]*domain.FlowState, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := mgr.LoadOrStart(ctx, "shared", map[string]any{"n": i})
			assert.NoError(t, err)
			results[i] = state
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r, "only one goroutine starts the instance")
	}
}

func TestManager_ConcurrentSteps(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redis.NewFromClient(client)
	mgr := session.NewManager(counterEngine(t), store,
		session.WithLocker(redis.NewLocker(client, "test:")),
		session.WithLockTTL(5*time.Second),
	)

	_, err := mgr.StartWithID(ctx, "race", nil)
	require.NoError(t, err)
	_, err = mgr.Step(ctx, "race", domain.Tick())
	require.NoError(t, err)

	// Each add/check pair is two steps; 20 steps add exactly 10.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Step(ctx, "race", domain.Tick())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := mgr.Load(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, float64(10), final.Variables["n"])
	assert.Equal(t, 21, final.Steps)
}

func TestManager_CommitHook(t *testing.T) {
	ctx := context.Background()
	var diffs []*domain.StateDiff
	mgr := session.NewManager(counterEngine(t), memory.NewStore(),
		session.WithCommitHook(func(_ context.Context, prev, next *domain.FlowState) {
			diffs = append(diffs, domain.DiffStates(prev, next))
		}),
	)

	_, err := mgr.StartWithID(ctx, "i-1", nil)
	require.NoError(t, err)
	_, err = mgr.Step(ctx, "i-1", domain.Tick())
	require.NoError(t, err)
	_, err = mgr.Step(ctx, "i-1", domain.Event{Name: "unknown"})
	require.Error(t, err)

	require.Len(t, diffs, 2, "rejected events are not committed")
	require.NotNil(t, diffs[0].Current)
	assert.Equal(t, 0, *diffs[0].Current)
	require.NotNil(t, diffs[1].Current)
	assert.Equal(t, 1, *diffs[1].Current)
	assert.Equal(t, []int{1}, diffs[1].History)
}
