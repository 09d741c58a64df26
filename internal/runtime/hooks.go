package runtime

import (
	"context"

	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
)

func (e *Engine) base(state *domain.FlowState, typ domain.HookType) domain.EventBase {
	return domain.EventBase{
		Timestamp:  e.now(),
		Type:       typ,
		InstanceID: state.InstanceID,
		Flow:       e.flow.Name,
	}
}

func (e *Engine) nodeEvent(state *domain.FlowState, typ domain.HookType, node *compiler.CompiledNode, port string) *domain.NodeEvent {
	return &domain.NodeEvent{
		EventBase: e.base(state, typ),
		Index:     node.Index,
		Node:      node.Name,
		Kind:      node.Kind,
		Port:      port,
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, state *domain.FlowState, node *compiler.CompiledNode) {
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, e.nodeEvent(state, domain.HookNodeEnter, node, ""))
	}
}

func (e *Engine) emitNodeLeave(ctx context.Context, state *domain.FlowState, node *compiler.CompiledNode, port string) {
	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, e.nodeEvent(state, domain.HookNodeLeave, node, port))
	}
}

func (e *Engine) emitTerminate(ctx context.Context, state *domain.FlowState, node *compiler.CompiledNode) {
	if e.hooks.OnTerminate != nil {
		e.hooks.OnTerminate(ctx, e.nodeEvent(state, domain.HookTerminate, node, ""))
	}
}

func (e *Engine) emitAction(ctx context.Context, state *domain.FlowState, node *compiler.CompiledNode, updates map[string]any) {
	if e.hooks.OnAction == nil {
		return
	}
	e.hooks.OnAction(ctx, &domain.ActionEvent{
		EventBase: e.base(state, domain.HookAction),
		Index:     node.Index,
		Node:      node.Name,
		Behavior:  node.Payload.Behavior,
		Updates:   domain.NormalizeMap(updates),
	})
}
