// Package metric provides Prometheus metrics for the server.
//
// This package implements metrics collection and exposition:
//
//   - registry.go: Prometheus registry, metric definitions, and HTTP handler
//
// Metrics include:
//
//   - Command throughput and latency, by command name and outcome
//   - Keyspace size and active BLPOP waiter count
//   - Connected client count
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
