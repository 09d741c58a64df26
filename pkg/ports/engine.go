package ports

import (
	"context"

	"github.com/aretw0/gameflow/pkg/domain"
)

// FlowEngine is the runtime surface used by hosts (session manager, HTTP
// adapter, CLI) to drive flow instances whose state they keep themselves.
type FlowEngine interface {
	// Start creates a new flow state positioned on the entry node.
	Start(ctx context.Context, instanceID string, bindings map[string]any) (*domain.FlowState, error)

	// Step performs one transition and returns the new state.
	// The given state is never modified.
	Step(ctx context.Context, state *domain.FlowState, event domain.Event) (*domain.FlowState, error)
}
