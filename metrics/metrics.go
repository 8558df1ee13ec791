package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by the transport and the publisher.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	serversCreated     prometheus.Counter
	serverCacheHits    prometheus.Counter
	serverErrors       prometheus.Counter
	registriesCreated  prometheus.Counter
	objectsExported    prometheus.Counter
	nodeWrappers       *prometheus.CounterVec
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		serversCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "servers_created_total",
			Help:      "Server wrappers constructed",
		}),
		serverCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_cache_hits_total",
			Help:      "Server wrapper requests answered from the instance cache",
		}),
		serverErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_errors_total",
			Help:      "Failed server wrapper constructions",
		}),
		registriesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registries_created_total",
			Help:      "Per-port registries created",
		}),
		objectsExported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_exported_total",
			Help:      "Objects exported for remote invocation",
		}),
		nodeWrappers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_wrappers_created_total",
			Help:      "Node wrappers constructed by node kind",
		}, []string{"kind"}),
		invocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Remote invocations by method and outcome",
		}, []string{"method", "outcome"}),
		invocationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Remote invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) ServerCreated() {
	if m != nil {
		m.serversCreated.Inc()
	}
}

func (m *Metrics) ServerCacheHit() {
	if m != nil {
		m.serverCacheHits.Inc()
	}
}

func (m *Metrics) ServerError() {
	if m != nil {
		m.serverErrors.Inc()
	}
}

func (m *Metrics) RegistryCreated() {
	if m != nil {
		m.registriesCreated.Inc()
	}
}

func (m *Metrics) ObjectExported() {
	if m != nil {
		m.objectsExported.Inc()
	}
}

func (m *Metrics) NodeWrapperCreated(kind string) {
	if m != nil {
		m.nodeWrappers.WithLabelValues(kind).Inc()
	}
}

// Invocation records one remote call. outcome is "ok" or an error code.
func (m *Metrics) Invocation(method, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(method, outcome).Inc()
	m.invocationDuration.WithLabelValues(method).Observe(took.Seconds())
}
