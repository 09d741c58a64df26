/*
Package observability turns engine lifecycle hooks into logs, metrics and traces.

Each constructor returns a domain.LifecycleHooks value; Combine fans one
engine's notifications out to several of them:

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(
		observability.LoggingHooks(logger),
		metrics.Hooks(),
		observability.TracingHooks(otel.Tracer("gameflow")),
	)
	engine, _ := gameflow.New(flow, gameflow.WithLifecycleHooks(hooks))

Hooks only fire for committed transitions, so counters never include
rejected events or failed behaviors.
*/
package observability
