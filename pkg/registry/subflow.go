package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/gameflow/pkg/domain"
)

// ActionSubflow is registered by RegisterSubflow, not by RegisterBuiltins.
const ActionSubflow = "subflow"

// FlowRunner runs a named flow to completion and returns its final variables.
type FlowRunner interface {
	RunFlow(ctx context.Context, name string, bindings map[string]any) (map[string]any, error)
}

type subflowParams struct {
	Flow string            `mapstructure:"flow"`
	In   map[string]string `mapstructure:"in"`
	Out  map[string]string `mapstructure:"out"`
}

type runningKey struct{}

// Running returns the names of the flows whose subflow actions led to ctx,
// outermost first.
func Running(ctx context.Context) []string {
	names, _ := ctx.Value(runningKey{}).([]string)
	return names
}

// RegisterSubflow adds the subflow action to r. It runs params.flow through
// flows, binding child variables from parent variables (in: parent -> child)
// and copying results back (out: child -> parent). A flow may not run itself,
// directly or through another subflow.
func RegisterSubflow(r *Registry, flows FlowRunner) {
	r.RegisterAction(ActionSubflow, func(ctx context.Context, s domain.Scope) (map[string]any, error) {
		var p subflowParams
		if err := decodeParams(s.Params, &p); err != nil {
			return nil, err
		}
		if p.Flow == "" {
			return nil, fmt.Errorf("subflow: flow is required")
		}
		chain := append(append([]string(nil), Running(ctx)...), s.Flow)
		for _, name := range chain {
			if name == p.Flow {
				return nil, fmt.Errorf("subflow %q from %q: %w", p.Flow, s.Flow, domain.ErrSubflowRecursion)
			}
		}

		bindings := make(map[string]any, len(p.In))
		for parent, child := range p.In {
			if v, ok := s.Variables[parent]; ok {
				bindings[child] = v
			}
		}
		vars, err := flows.RunFlow(context.WithValue(ctx, runningKey{}, chain), p.Flow, bindings)
		if err != nil {
			return nil, fmt.Errorf("subflow %q: %w", p.Flow, err)
		}

		out := make(map[string]any, len(p.Out))
		for child, parent := range p.Out {
			if v, ok := vars[child]; ok {
				out[parent] = v
			}
		}
		return out, nil
	})
}

// SubflowTargets lists the flows named by subflow nodes of payloads.
func SubflowTargets(payloads []domain.Payload) []string {
	var targets []string
	for _, pl := range payloads {
		if pl.Behavior != ActionSubflow {
			continue
		}
		if name, ok := pl.Params["flow"].(string); ok && name != "" {
			targets = append(targets, name)
		}
	}
	return targets
}
