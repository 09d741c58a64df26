package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
	"github.com/aretw0/gameflow/pkg/schema"
)

// DefaultHistoryLimit bounds FlowState.History.
const DefaultHistoryLimit = 256

// Engine interprets a compiled flow. It holds no per-instance state and is
// safe for concurrent use; each FlowState must be driven by a single caller.
type Engine struct {
	flow      *compiler.Flow
	bound     []binding
	variables schema.Schema
	events    map[string]schema.Schema

	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	breakpoints  map[int]bool
	historyLimit int
	now          func() time.Time
}

// binding is the behavior resolved for one compiled node at load time.
type binding struct {
	predicate domain.Predicate
	action    domain.ActionFunc
	// boolInput is the input a Condition without predicate branches on.
	boolInput int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithBreakpoints marks compiled node indices at which Step pauses by
// returning the committed state together with domain.ErrBreakpoint.
func WithBreakpoints(indices ...int) EngineOption {
	return func(e *Engine) {
		for _, i := range indices {
			e.breakpoints[i] = true
		}
	}
}

// WithHistoryLimit bounds the number of visited indices kept in FlowState.History.
func WithHistoryLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.historyLimit = n
		}
	}
}

// WithClock overrides the time source used for hook timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine binds the behaviors named by flow to behaviors and returns an
// engine ready to run instances of it. Every behavior is resolved here, so a
// missing one fails at load time with domain.ErrUnknownBehavior rather than
// in the middle of an instance.
func NewEngine(flow *compiler.Flow, behaviors ports.Behaviors, opts ...EngineOption) (*Engine, error) {
	if flow == nil {
		return nil, fmt.Errorf("new engine: nil flow")
	}
	if err := flow.Check(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	e := &Engine{
		flow:         flow,
		logger:       logging.NewNop(),
		breakpoints:  make(map[int]bool),
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("flow", flow.Name)

	vars, err := schema.ParseTypeMap(flow.Variables)
	if err != nil {
		return nil, fmt.Errorf("new engine: variables: %w", err)
	}
	e.variables = vars

	e.events = make(map[string]schema.Schema, len(flow.Events))
	for name, fields := range flow.Events {
		s, err := schema.ParseTypeMap(fields)
		if err != nil {
			return nil, fmt.Errorf("new engine: event %q: %w", name, err)
		}
		e.events[name] = s
	}

	e.bound = make([]binding, len(flow.Nodes))
	for i := range flow.Nodes {
		b, err := bind(&flow.Nodes[i], behaviors)
		if err != nil {
			return nil, fmt.Errorf("new engine: %w", err)
		}
		e.bound[i] = b
	}
	return e, nil
}

func bind(n *compiler.CompiledNode, behaviors ports.Behaviors) (binding, error) {
	b := binding{boolInput: -1}
	name := n.Payload.Behavior

	switch n.Kind {
	case domain.KindCondition:
		if name == "" {
			for i, in := range n.Inputs {
				if in.Type.Kind == domain.KindBool {
					b.boolInput = i
					return b, nil
				}
			}
			return b, fmt.Errorf("condition %q has no predicate and no bool input: %w", n.Name, domain.ErrUnknownBehavior)
		}
		if behaviors != nil {
			b.predicate, _ = behaviors.Predicate(name)
		}
		if b.predicate == nil {
			return b, fmt.Errorf("condition %q: predicate %q: %w", n.Name, name, domain.ErrUnknownBehavior)
		}
	case domain.KindAction:
		if name == "" {
			return b, nil
		}
		if behaviors != nil {
			b.action, _ = behaviors.Action(name)
		}
		if b.action == nil {
			return b, fmt.Errorf("action %q: %q: %w", n.Name, name, domain.ErrUnknownBehavior)
		}
	}
	return b, nil
}

// Flow returns the compiled flow the engine runs. It must not be modified.
func (e *Engine) Flow() *compiler.Flow {
	return e.flow
}

// Start creates a new flow state on the entry node. Bindings for declared
// variables are type checked; undeclared names are kept as free variables.
func (e *Engine) Start(ctx context.Context, instanceID string, bindings map[string]any) (*domain.FlowState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vars := domain.NormalizeMap(bindings)
	if vars == nil {
		vars = make(map[string]any)
	}
	for _, name := range domain.SortedKeys(vars) {
		typ, declared := e.variables[name]
		if !declared {
			continue
		}
		if err := typ.Validate(vars[name]); err != nil {
			return nil, fmt.Errorf("variable %q: %v: %w", name, err, domain.ErrInvalidBinding)
		}
	}

	state := &domain.FlowState{
		InstanceID: instanceID,
		Flow:       e.flow.Name,
		Current:    e.flow.Entry,
		Status:     domain.StatusActive,
		Variables:  vars,
		History:    []int{e.flow.Entry},
	}

	entry := &e.flow.Nodes[e.flow.Entry]
	e.logger.DebugContext(ctx, "flow started", "instance", instanceID, "node", entry.Name)
	e.emitNodeEnter(ctx, state, entry)
	return state, nil
}
