/*
Package observability turns the runtime's lifecycle hooks into Prometheus metrics
and structured log lines.

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	shell := codeshell.New(
		codeshell.WithLifecycleHooks(metrics.Hooks()),
		codeshell.WithLifecycleHooks(observability.LoggingHooks(logger)),
	)
*/
package observability
