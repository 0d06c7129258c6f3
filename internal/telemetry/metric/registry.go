// Package metric provides Prometheus metrics for the server.
//
// It exposes metrics in Prometheus exposition format for monitoring
// command throughput, keyspace size, and blocking-consumer behavior.
package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics, registered against a private
// prometheus.Registry so tests can construct independent instances
// instead of colliding on the global default registry.
type Registry struct {
	registry *prometheus.Registry

	CommandsTotal    *prometheus.CounterVec
	CommandDuration  *prometheus.HistogramVec
	KeyspaceEntries  prometheus.Gauge
	WaitersActive    prometheus.Gauge
	ClientsConnected prometheus.Gauge
	BlockedTimeouts  prometheus.Counter
}

// NewRegistry creates a new metrics registry with Go runtime and process
// collectors attached, matching the exposition a Prometheus scrape expects.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "respd_commands_total",
			Help: "Total commands processed, by command name and outcome.",
		}, []string{"command", "outcome"}),
		CommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "respd_command_duration_seconds",
			Help:    "Command handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		KeyspaceEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "respd_keyspace_entries",
			Help: "Number of live keys in the keyspace.",
		}),
		WaitersActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "respd_waiters_active",
			Help: "Number of sessions currently blocked in BLPOP.",
		}),
		ClientsConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "respd_clients_connected",
			Help: "Number of currently open client connections.",
		}),
		BlockedTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "respd_blpop_timeouts_total",
			Help: "Total BLPOP calls that reached their deadline unfulfilled.",
		}),
	}
}

// Handler returns the HTTP handler serving this registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordCommand observes the outcome and latency of one executed command.
func (r *Registry) RecordCommand(command, outcome string, seconds float64) {
	r.CommandsTotal.WithLabelValues(command, outcome).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(seconds)
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide default registry, created on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns the HTTP handler for the global registry's /metrics route.
func Handler() http.Handler {
	return Global().Handler()
}
