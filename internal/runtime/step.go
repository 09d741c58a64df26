package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/schema"
)

// Step performs exactly one transition from the current node and returns the
// resulting state. The given state is never modified: on any error except a
// broken transition or a breakpoint, the returned state is nil and the
// caller keeps its previous state.
//
// A broken transition returns a copy of the state marked StatusInvalid
// together with an error matching domain.ErrBrokenTransition. Arriving at a
// breakpoint returns the committed state together with domain.ErrBreakpoint.
func (e *Engine) Step(ctx context.Context, state *domain.FlowState, event domain.Event) (*domain.FlowState, error) {
	if err := e.checkState(state); err != nil {
		return nil, err
	}
	if err := e.checkEvent(event); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	node := &e.flow.Nodes[state.Current]
	next := state.Clone()
	if next.Variables == nil {
		next.Variables = make(map[string]any)
	}

	port, branch, updates, err := e.evaluate(ctx, next, node, event)
	if err != nil {
		e.logger.WarnContext(ctx, "step failed", "instance", state.InstanceID, "node", node.Name, "error", err)
		return nil, err
	}

	target := compiler.NoTarget
	if port >= 0 && port < len(node.Next) {
		target = node.Next[port]
	}
	if target == compiler.NoTarget {
		halted := state.Clone()
		halted.Status = domain.StatusInvalid
		terr := &domain.TransitionError{Index: node.Index, Node: node.Name, Branch: branch}
		e.logger.ErrorContext(ctx, "broken transition", "instance", state.InstanceID, "node", node.Name, "error", terr)
		return halted, terr
	}

	next.Current = target
	next.Steps++
	next.History = append(next.History, target)
	if over := len(next.History) - e.historyLimit; over > 0 {
		next.History = append([]int(nil), next.History[over:]...)
	}
	arrived := &e.flow.Nodes[target]
	if arrived.Kind == domain.KindExit {
		next.Status = domain.StatusTerminated
	}

	e.logger.DebugContext(ctx, "step",
		"instance", state.InstanceID,
		"from", node.Name,
		"port", node.Outputs[port].Name,
		"to", arrived.Name,
		"status", next.Status,
	)

	e.emitNodeLeave(ctx, next, node, node.Outputs[port].Name)
	if node.Kind == domain.KindAction {
		e.emitAction(ctx, next, node, updates)
	}
	e.emitNodeEnter(ctx, next, arrived)
	if next.Status == domain.StatusTerminated {
		e.emitTerminate(ctx, next, arrived)
	}

	if e.breakpoints[target] {
		return next, fmt.Errorf("node %d (%s): %w", target, arrived.Name, domain.ErrBreakpoint)
	}
	return next, nil
}

func (e *Engine) checkState(state *domain.FlowState) error {
	if state == nil {
		return fmt.Errorf("nil flow state: %w", domain.ErrInvalidState)
	}
	switch state.Status {
	case domain.StatusTerminated:
		return domain.ErrAlreadyTerminated
	case domain.StatusActive:
	default:
		return fmt.Errorf("status %q: %w", state.Status, domain.ErrInvalidState)
	}
	if state.Current < 0 || state.Current >= len(e.flow.Nodes) {
		return fmt.Errorf("current index %d out of range: %w", state.Current, domain.ErrInvalidState)
	}
	if e.flow.Nodes[state.Current].Kind == domain.KindExit {
		return fmt.Errorf("active state on exit node %d: %w", state.Current, domain.ErrInvalidState)
	}
	return nil
}

// checkEvent rejects undeclared event names, undeclared payload keys and
// payload values of the wrong type. The empty tick is always accepted.
func (e *Engine) checkEvent(event domain.Event) error {
	if event.Name == "" {
		if len(event.Payload) > 0 {
			return &domain.EventError{Reason: "a tick carries no payload"}
		}
		return nil
	}
	s, ok := e.events[event.Name]
	if !ok {
		return &domain.EventError{Event: event.Name, Reason: "event is not declared by the flow"}
	}
	if err := schema.ValidateKnown(s, domain.NormalizeMap(event.Payload)); err != nil {
		return &domain.EventError{Event: event.Name, Reason: err.Error()}
	}
	return nil
}

// evaluate runs the behavior of node and returns the output port to follow,
// or -1 when the node lacks it. Conditions also report the branch taken.
// Action updates are applied to next.
func (e *Engine) evaluate(ctx context.Context, next *domain.FlowState, node *compiler.CompiledNode, event domain.Event) (int, string, map[string]any, error) {
	b := e.bound[node.Index]

	switch node.Kind {
	case domain.KindEntry, domain.KindState:
		return 0, "", nil, nil

	case domain.KindCondition:
		scope := e.scope(next, node, event)
		var (
			ok  bool
			err error
		)
		if b.predicate != nil {
			ok, err = b.predicate(ctx, scope)
		} else {
			ok, err = boolInput(scope, node.Inputs[b.boolInput].Name)
		}
		if err != nil {
			return 0, "", nil, &domain.BehaviorError{Node: node.Name, Behavior: node.Payload.Behavior, Err: err}
		}
		branch := domain.BranchFalse
		if ok {
			branch = domain.BranchTrue
		}
		return node.OutputIndex(branch), branch, nil, nil

	case domain.KindAction:
		if b.action == nil {
			return 0, "", nil, nil
		}
		updates, err := b.action(ctx, e.scope(next, node, event))
		if err != nil {
			return 0, "", nil, &domain.BehaviorError{Node: node.Name, Behavior: node.Payload.Behavior, Err: err}
		}
		applied, err := e.apply(next, node, updates)
		if err != nil {
			return 0, "", nil, &domain.BehaviorError{Node: node.Name, Behavior: node.Payload.Behavior, Err: err}
		}
		return 0, "", applied, nil
	}
	return 0, "", nil, fmt.Errorf("node %d (%s) cannot be stepped: %w", node.Index, node.Kind, domain.ErrInvalidState)
}

// scope builds the read-only view handed to a behavior.
func (e *Engine) scope(state *domain.FlowState, node *compiler.CompiledNode, event domain.Event) domain.Scope {
	inputs := make(map[string]any)
	for _, in := range node.Inputs {
		if !in.Type.IsValue() {
			continue
		}
		if in.Source != "" {
			if v, ok := state.Variables[in.Source]; ok {
				inputs[in.Name] = domain.NormalizeValue(v)
				continue
			}
		}
		if in.HasDefault {
			inputs[in.Name] = domain.NormalizeValue(in.Default)
		}
	}
	return domain.Scope{
		Index:     node.Index,
		Node:      node.Name,
		Params:    domain.NormalizeMap(node.Payload.Params),
		Inputs:    inputs,
		Variables: domain.NormalizeMap(state.Variables),
		Event:     domain.Event{Name: event.Name, Payload: domain.NormalizeMap(event.Payload)},
		Flow:      e.flow.Name,
		Steps:     state.Steps,
		Logger:    e.logger.With("instance", state.InstanceID, "node", node.Name),
	}
}

func boolInput(s domain.Scope, name string) (bool, error) {
	v, ok := s.Inputs[name]
	if !ok {
		return false, fmt.Errorf("bool input %q has no value", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("bool input %q holds %T", name, v)
	}
	return b, nil
}

// apply writes action updates into state. A key naming a value output of the
// node is redirected to that output's variable and checked against the port
// type; writes to declared variables are checked against their declared
// type. A nil value deletes the variable. It returns the updates keyed by
// the variables actually written.
func (e *Engine) apply(state *domain.FlowState, node *compiler.CompiledNode, updates map[string]any) (map[string]any, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	applied := make(map[string]any, len(updates))
	for _, key := range domain.SortedKeys(updates) {
		value := domain.NormalizeValue(updates[key])
		variable := key

		if idx := node.OutputIndex(key); idx >= 0 && node.Outputs[idx].Type.IsValue() {
			out := node.Outputs[idx]
			variable = out.Variable
			if value != nil {
				if err := domain.CheckValue(out.Type, value); err != nil {
					return nil, fmt.Errorf("output %q: %w", out.Name, err)
				}
			}
		}
		if typ, declared := e.variables[variable]; declared && value != nil {
			if err := typ.Validate(value); err != nil {
				return nil, fmt.Errorf("variable %q: %w", variable, err)
			}
		}

		if value == nil {
			delete(state.Variables, variable)
		} else {
			state.Variables[variable] = value
		}
		applied[variable] = value
	}
	return applied, nil
}
