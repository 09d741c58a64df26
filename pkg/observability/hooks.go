package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/gameflow/pkg/domain"
)

// Combine returns hooks that call every non-nil callback of each argument in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var enter, leave, term []func(context.Context, *domain.NodeEvent)
	var action []func(context.Context, *domain.ActionEvent)
	for _, h := range all {
		if h.OnNodeEnter != nil {
			enter = append(enter, h.OnNodeEnter)
		}
		if h.OnNodeLeave != nil {
			leave = append(leave, h.OnNodeLeave)
		}
		if h.OnAction != nil {
			action = append(action, h.OnAction)
		}
		if h.OnTerminate != nil {
			term = append(term, h.OnTerminate)
		}
	}

	out.OnNodeEnter = fanNode(enter)
	out.OnNodeLeave = fanNode(leave)
	out.OnTerminate = fanNode(term)
	if len(action) > 0 {
		out.OnAction = func(ctx context.Context, ev *domain.ActionEvent) {
			for _, fn := range action {
				fn(ctx, ev)
			}
		}
	}
	return out
}

func fanNode(fns []func(context.Context, *domain.NodeEvent)) func(context.Context, *domain.NodeEvent) {
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, ev *domain.NodeEvent) {
		for _, fn := range fns {
			fn(ctx, ev)
		}
	}
}

// LoggingHooks logs every lifecycle notification at debug level, and
// terminations at info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, ev *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"instance", ev.InstanceID, "flow", ev.Flow, "node", ev.Node, "kind", ev.Kind)
		},
		OnNodeLeave: func(ctx context.Context, ev *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave",
				"instance", ev.InstanceID, "flow", ev.Flow, "node", ev.Node, "port", ev.Port)
		},
		OnAction: func(ctx context.Context, ev *domain.ActionEvent) {
			logger.DebugContext(ctx, "action",
				"instance", ev.InstanceID, "flow", ev.Flow, "node", ev.Node,
				"behavior", ev.Behavior, "updates", len(ev.Updates))
		},
		OnTerminate: func(ctx context.Context, ev *domain.NodeEvent) {
			logger.InfoContext(ctx, "flow_terminated",
				"instance", ev.InstanceID, "flow", ev.Flow, "exit", ev.Node)
		},
	}
}
