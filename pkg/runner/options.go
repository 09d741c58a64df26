package runner

import (
	"log/slog"

	"github.com/aretw0/gameflow"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithEngine configures the engine to execute. Required.
func WithEngine(engine *gameflow.Engine) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

// WithStore configures the StateStore for persistence.
func WithStore(store ports.StateStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithHandler configures the IOHandler.
func WithHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithInstanceID sets the instance id, the persistence key when a store is set.
func WithInstanceID(id string) Option {
	return func(r *Runner) {
		r.InstanceID = id
	}
}

// WithBindings sets the initial variables of a new instance.
func WithBindings(bindings map[string]any) Option {
	return func(r *Runner) {
		r.bindings = bindings
	}
}

// WithInitialState resumes from state instead of loading or starting one.
func WithInitialState(state *domain.FlowState) Option {
	return func(r *Runner) {
		r.initialState = state
	}
}

// WithFresh discards a stored instance before running.
func WithFresh(fresh bool) Option {
	return func(r *Runner) {
		r.fresh = fresh
	}
}

// WithReload makes the runner reload its engine whenever ch fires.
func WithReload(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.reload = ch
	}
}

// WithInputLimits bounds the lines the handler accepts. It applies to the
// text and JSON handlers; custom handlers enforce their own limits.
func WithInputLimits(limits InputLimits) Option {
	return func(r *Runner) {
		r.limits = &limits
	}
}
