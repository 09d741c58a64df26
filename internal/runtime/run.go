package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Run feeds events to Step one at a time and stops when the instance
// terminates, the events are exhausted or a step fails. It returns the last
// committed state; on error that is the state before the failing step,
// except for broken transitions and breakpoints where it is the state Step
// returned.
func (e *Engine) Run(ctx context.Context, state *domain.FlowState, events ...domain.Event) (*domain.FlowState, error) {
	if state == nil {
		return nil, fmt.Errorf("nil flow state: %w", domain.ErrInvalidState)
	}
	current := state
	for _, ev := range events {
		if current.Terminated() {
			return current, nil
		}
		next, err := e.Step(ctx, current, ev)
		if err != nil {
			if next != nil {
				return next, err
			}
			return current, err
		}
		current = next
	}
	return current, nil
}

// Advance steps with ticks until the instance terminates, returning an error
// if it is still active after maxSteps transitions.
func (e *Engine) Advance(ctx context.Context, state *domain.FlowState, maxSteps int) (*domain.FlowState, error) {
	if state == nil {
		return nil, fmt.Errorf("nil flow state: %w", domain.ErrInvalidState)
	}
	current := state
	for i := 0; i < maxSteps; i++ {
		if current.Terminated() {
			return current, nil
		}
		next, err := e.Step(ctx, current, domain.Tick())
		if err != nil {
			if next != nil {
				return next, err
			}
			return current, err
		}
		current = next
	}
	if current.Terminated() {
		return current, nil
	}
	return current, fmt.Errorf("flow %q still active after %d steps", e.flow.Name, maxSteps)
}

// IsPause reports whether err only signals a breakpoint: the state returned
// with it is committed and can be stepped again.
func IsPause(err error) bool {
	return errors.Is(err, domain.ErrBreakpoint)
}
