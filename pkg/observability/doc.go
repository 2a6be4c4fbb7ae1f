/*
Package observability subscribes to the engine's lifecycle hooks.

Metrics records run, step and routing counters in a Prometheus registry, and
LoggingHooks writes one structured line per lifecycle event.
*/
package observability
