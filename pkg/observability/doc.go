/*
Package observability turns engine lifecycle hooks into logs and metrics.

LoggingHooks writes one structured record per lifecycle event, Metrics counts them for
Prometheus, and Chain fans a single event out to several hook sets:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Chain(observability.LoggingHooks(logger), metrics.Hooks())
	eng, err := storyline.New(st, storyline.WithLifecycleHooks(hooks))
*/
package observability
