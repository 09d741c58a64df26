package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/internal/logging"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

// DefaultInstanceID is used when no instance id is configured.
const DefaultInstanceID = "default"

// Runner handles the execution loop of a gameflow engine using provided IO.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Store is the persistence adapter for durable execution.
	// If nil, instances are ephemeral.
	Store ports.StateStore

	InstanceID string

	engine       *gameflow.Engine
	bindings     map[string]any
	initialState *domain.FlowState
	fresh        bool
	reload       <-chan struct{}
	limits       *InputLimits
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	if h, ok := r.Handler.(limited); ok && r.limits != nil {
		h.SetInputLimits(*r.limits)
	}
	if r.InstanceID == "" {
		r.InstanceID = DefaultInstanceID
	}
	return r
}

// Engine returns the engine in use, which changes after a reload.
func (r *Runner) Engine() *gameflow.Engine {
	return r.engine
}

type inputResult struct {
	event domain.Event
	err   error
}

// Run executes the loop until the instance terminates, input ends (io.EOF)
// or ctx is cancelled, and returns the last committed state.
//
// Rejected events and failed behaviors are reported through the handler and
// leave the state unchanged. A broken transition ends the run with an error.
func (r *Runner) Run(ctx context.Context) (*domain.FlowState, error) {
	if r.engine == nil {
		return nil, fmt.Errorf("runner: no engine configured")
	}

	state, err := r.resolveInitialState(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.output(ctx, nil, state); err != nil {
		return state, err
	}

	// Input is read by a single pump so a reload can interrupt the wait.
	inputs := make(chan inputResult)
	requests := make(chan struct{})
	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	go r.pump(pumpCtx, requests, inputs)

	pending := false
	for !state.Terminated() {
		if !pending {
			select {
			case requests <- struct{}{}:
				pending = true
			case <-ctx.Done():
				return state, ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()

		case <-r.reload:
			next, err := r.reloadEngine(ctx, state)
			if err != nil {
				r.Logger.Error("reload failed", "error", err)
				r.Handler.SystemOutput(ctx, fmt.Sprintf("reload failed: %v", err))
				continue
			}
			state = next

		case in := <-inputs:
			pending = false
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					return state, nil
				}
				if recoverable(in.err) {
					r.Handler.SystemOutput(ctx, in.err.Error())
					continue
				}
				return state, fmt.Errorf("input error: %w", in.err)
			}
			next, err := r.step(ctx, state, in.event)
			if err != nil {
				return next, err
			}
			state = next
		}
	}
	return state, nil
}

func (r *Runner) pump(ctx context.Context, requests <-chan struct{}, inputs chan<- inputResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-requests:
		}
		ev, err := r.Handler.Input(ctx)
		select {
		case inputs <- inputResult{event: ev, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

// step applies one event and returns the state to continue with.
func (r *Runner) step(ctx context.Context, state *domain.FlowState, ev domain.Event) (*domain.FlowState, error) {
	next, err := r.engine.Step(ctx, state, ev)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrBreakpoint):
		r.Handler.SystemOutput(ctx, err.Error())
	case errors.Is(err, domain.ErrInvalidEvent), errors.Is(err, domain.ErrBehaviorFailed):
		r.Logger.Debug("event rejected", "instance", r.InstanceID, "event", ev.Name, "error", err)
		return state, r.Handler.SystemOutput(ctx, err.Error())
	case errors.Is(err, domain.ErrBrokenTransition) && next != nil:
		if serr := r.save(ctx, next); serr != nil {
			return state, serr
		}
		return next, err
	default:
		return state, err
	}

	if err := r.save(ctx, next); err != nil {
		return state, fmt.Errorf("critical persistence error: %w", err)
	}
	return next, r.output(ctx, state, next)
}

func (r *Runner) output(ctx context.Context, prev, next *domain.FlowState) error {
	frame := Frame{State: next}
	if node, ok := r.engine.Node(next); ok {
		frame.Node = node.Name
		frame.Kind = node.Kind
	}
	if prev != nil {
		frame.Diff = domain.DiffStates(prev, next)
	}
	return r.Handler.Output(ctx, frame)
}

func (r *Runner) resolveInitialState(ctx context.Context) (*domain.FlowState, error) {
	if r.initialState != nil {
		return r.initialState, nil
	}
	if r.Store != nil {
		if r.fresh {
			if err := r.Store.Delete(ctx, r.InstanceID); err != nil && !errors.Is(err, domain.ErrInstanceNotFound) {
				return nil, fmt.Errorf("failed to reset instance: %w", err)
			}
		}
		state, err := r.Store.Load(ctx, r.InstanceID)
		if err == nil && r.compatible(state) {
			r.Logger.Info("instance rehydrated", "instance", r.InstanceID, "current", state.Current)
			return state, nil
		}
		if err != nil && !errors.Is(err, domain.ErrInstanceNotFound) {
			return nil, fmt.Errorf("failed to load instance: %w", err)
		}
	}

	state, err := r.engine.Start(ctx, r.InstanceID, r.bindings)
	if err != nil {
		return nil, err
	}
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// compatible reports whether a stored state can continue on the current flow.
func (r *Runner) compatible(state *domain.FlowState) bool {
	flow := r.engine.Flow()
	if state.Flow != flow.Name || state.Status != domain.StatusActive {
		return false
	}
	node, ok := flow.Node(state.Current)
	return ok && node.Kind != domain.KindExit
}

// reloadEngine swaps in a recompiled engine. The state carries over when its
// cursor still fits the new flow; otherwise the instance restarts.
func (r *Runner) reloadEngine(ctx context.Context, state *domain.FlowState) (*domain.FlowState, error) {
	next, err := r.engine.Reload(ctx)
	if err != nil {
		return state, err
	}
	r.engine = next
	r.Logger.Info("flow reloaded", "flow", next.Flow().Name)

	if r.compatible(state) {
		r.Handler.SystemOutput(ctx, "flow reloaded")
		return state, r.output(ctx, nil, state)
	}
	fresh, err := next.Start(ctx, r.InstanceID, nil)
	if err != nil {
		return state, err
	}
	if err := r.save(ctx, fresh); err != nil {
		return state, err
	}
	r.Handler.SystemOutput(ctx, "flow reloaded, instance restarted")
	return fresh, r.output(ctx, nil, fresh)
}

func (r *Runner) save(ctx context.Context, state *domain.FlowState) error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Save(ctx, r.InstanceID, state)
}
