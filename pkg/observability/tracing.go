package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aretw0/gameflow/pkg/domain"
)

// TracingHooks records each committed transition as a span named after the
// node being left, and adds enter, action and terminate events to the span
// found in the hook context, if any.
func TracingHooks(tracer trace.Tracer) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(ctx context.Context, ev *domain.NodeEvent) {
			_, span := tracer.Start(ctx, "gameflow.step "+ev.Node,
				trace.WithTimestamp(ev.Timestamp),
				trace.WithAttributes(nodeAttributes(ev)...),
			)
			span.SetAttributes(attribute.String("gameflow.port", ev.Port))
			span.End(trace.WithTimestamp(ev.Timestamp))
		},
		OnNodeEnter: func(ctx context.Context, ev *domain.NodeEvent) {
			trace.SpanFromContext(ctx).AddEvent("gameflow.enter",
				trace.WithTimestamp(ev.Timestamp),
				trace.WithAttributes(nodeAttributes(ev)...))
		},
		OnAction: func(ctx context.Context, ev *domain.ActionEvent) {
			trace.SpanFromContext(ctx).AddEvent("gameflow.action",
				trace.WithTimestamp(ev.Timestamp),
				trace.WithAttributes(
					attribute.String("gameflow.node", ev.Node),
					attribute.String("gameflow.behavior", ev.Behavior),
					attribute.StringSlice("gameflow.updates", domain.SortedKeys(ev.Updates)),
				))
		},
		OnTerminate: func(ctx context.Context, ev *domain.NodeEvent) {
			trace.SpanFromContext(ctx).AddEvent("gameflow.terminate",
				trace.WithTimestamp(ev.Timestamp),
				trace.WithAttributes(nodeAttributes(ev)...))
		},
	}
}

func nodeAttributes(ev *domain.NodeEvent) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("gameflow.flow", ev.Flow),
		attribute.String("gameflow.instance", ev.InstanceID),
		attribute.String("gameflow.node", ev.Node),
		attribute.String("gameflow.kind", ev.Kind.String()),
		attribute.Int("gameflow.index", ev.Index),
	}
}
