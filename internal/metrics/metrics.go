// Package metrics owns the Prometheus registry and every collector the API
// exports on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agenda"

// Registry is the process-wide registry. A private registry keeps test
// binaries free of the default global collectors.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RepositoryOperations counts document store calls by entity kind, operation
// and outcome ("ok", "not_found", "invalid", "error").
var RepositoryOperations = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "repository_operations_total",
		Help:      "Document store operations by kind, operation and outcome",
	},
	[]string{"kind", "op", "outcome"},
)

// AuthEvents counts login, logout and gate decisions.
var AuthEvents = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication events by type and result",
	},
	[]string{"event", "result"},
)

// DiagnosticsDropped mirrors the diagnostic sink's drop counter.
var DiagnosticsDropped = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "diagnostics_dropped_total",
		Help:      "Diagnostic log entries dropped because the writer was saturated",
	},
)

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
