/*
Package observability turns client lifecycle hooks into Prometheus metrics and
OpenTelemetry span events.

Both are exposed as domain.LifecycleHooks so they can be combined and passed to
a session or factory:

	metrics := observability.MustNewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.CombineHooks(metrics.Hooks(), observability.SpanEvents())
*/
package observability
