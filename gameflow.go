package gameflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/internal/runtime"
	"github.com/aretw0/gameflow/pkg/adapters/file"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
	"github.com/aretw0/gameflow/pkg/registry"
)

// Engine is the high-level entry point for the GameFlow library.
// It binds a compiled flow to its behaviors and wraps the runtime with a
// simplified API for hosts.
type Engine struct {
	runtime *runtime.Engine
	flow    *compiler.Flow
	graph   *domain.Graph
	loader  ports.GraphLoader

	behaviors ports.Behaviors
	hooks     domain.LifecycleHooks
	logger    *slog.Logger

	breakpoints  []int
	historyLimit int

	reuse []Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithBehaviors replaces the builtin behavior registry.
func WithBehaviors(b ports.Behaviors) Option {
	return func(e *Engine) {
		e.behaviors = b
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBreakpoints pauses Step after arriving at the given compiled indices.
func WithBreakpoints(indices ...int) Option {
	return func(e *Engine) {
		e.breakpoints = append(e.breakpoints, indices...)
	}
}

// WithHistoryLimit bounds FlowState.History.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.historyLimit = n
	}
}

func (e *Engine) apply(opts []Option) {
	for _, opt := range opts {
		opt(e)
	}
	if e.behaviors == nil {
		e.behaviors = registry.NewWithBuiltins()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
}

func (e *Engine) init() error {
	if e.flow.Name != "" {
		e.logger = e.logger.With("flow", e.flow.Name)
	}
	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithBreakpoints(e.breakpoints...),
	}
	if e.historyLimit > 0 {
		runtimeOpts = append(runtimeOpts, runtime.WithHistoryLimit(e.historyLimit))
	}
	rt, err := runtime.NewEngine(e.flow, e.behaviors, runtimeOpts...)
	if err != nil {
		return err
	}
	e.runtime = rt
	return nil
}

// New binds an already compiled flow.
func New(flow *compiler.Flow, opts ...Option) (*Engine, error) {
	if flow == nil {
		return nil, fmt.Errorf("nil flow")
	}
	e := &Engine{flow: flow}
	e.apply(opts)
	if err := e.init(); err != nil {
		return nil, err
	}
	return e, nil
}

// Compile validates and compiles g, then binds the result.
func Compile(g *domain.Graph, opts ...Option) (*Engine, error) {
	e := &Engine{graph: g}
	e.apply(opts)
	flow, err := compiler.Compile(g, compiler.WithBehaviors(e.behaviors))
	if err != nil {
		return nil, err
	}
	e.flow = flow
	if err := e.init(); err != nil {
		return nil, err
	}
	return e, nil
}

// Load reads a graph from loader and compiles it. The loader is kept for
// Reload and Watch.
func Load(ctx context.Context, loader ports.GraphLoader, opts ...Option) (*Engine, error) {
	g, err := loader.LoadGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	e, err := Compile(g, opts...)
	if err != nil {
		return nil, err
	}
	e.loader = loader
	e.reuse = opts
	return e, nil
}

// LoadFile loads a YAML, HCL or JSON graph file.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	return Load(ctx, file.NewLoader(path), opts...)
}

// Start creates the initial state of an instance on the entry node.
func (e *Engine) Start(ctx context.Context, instanceID string, bindings map[string]any) (*domain.FlowState, error) {
	return e.runtime.Start(ctx, instanceID, bindings)
}

// Step performs one transition. The given state is never modified.
func (e *Engine) Step(ctx context.Context, state *domain.FlowState, event domain.Event) (*domain.FlowState, error) {
	return e.runtime.Step(ctx, state, event)
}

// Run feeds events to Step until the instance terminates or the events run out.
func (e *Engine) Run(ctx context.Context, state *domain.FlowState, events ...domain.Event) (*domain.FlowState, error) {
	return e.runtime.Run(ctx, state, events...)
}

// Advance steps with ticks until termination, failing after maxSteps.
func (e *Engine) Advance(ctx context.Context, state *domain.FlowState, maxSteps int) (*domain.FlowState, error) {
	return e.runtime.Advance(ctx, state, maxSteps)
}

// Flow returns the compiled flow.
func (e *Engine) Flow() *compiler.Flow {
	return e.flow
}

// Graph returns the source graph, or nil when the engine was built from a flow.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Inspect returns the compiled nodes in index order for visualization or
// introspection tools.
func (e *Engine) Inspect() []compiler.CompiledNode {
	out := make([]compiler.CompiledNode, len(e.flow.Nodes))
	copy(out, e.flow.Nodes)
	return out
}

// Node returns the compiled node at the state's cursor.
func (e *Engine) Node(state *domain.FlowState) (*compiler.CompiledNode, bool) {
	return e.flow.Node(state.Current)
}

// Loader returns the loader the engine was loaded from, if any.
func (e *Engine) Loader() ports.GraphLoader {
	return e.loader
}

// Watch returns a channel that signals when the underlying graph changes.
// Returns an error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Reload reloads and recompiles the graph with the same options. The
// receiver is left untouched, so running instances keep their flow until
// the host swaps engines.
func (e *Engine) Reload(ctx context.Context) (*Engine, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("engine was not loaded from a loader")
	}
	return Load(ctx, e.loader, e.reuse...)
}
