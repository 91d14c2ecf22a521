// Package metrics holds the Prometheus collectors exported by the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "camrelay"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	DevicesEvicted       prometheus.Counter
	DevicesMarkedOffline prometheus.Counter
	RelaySessions        *prometheus.CounterVec
	RelayBytes           *prometheus.CounterVec
	RelayActive          prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DevicesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_evicted_total",
			Help:      "Device records removed by the liveness monitor.",
		}),
		DevicesMarkedOffline: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_marked_offline_total",
			Help:      "Device records forced offline by the liveness monitor.",
		}),
		RelaySessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_sessions_total",
			Help:      "Finished relay sessions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RelayBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_bytes_total",
			Help:      "Bytes forwarded from devices to clients.",
		}, []string{"kind"}),
		RelayActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_active",
			Help:      "Stream relays currently in progress.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DevicesEvicted,
		m.DevicesMarkedOffline,
		m.RelaySessions,
		m.RelayBytes,
		m.RelayActive,
	)
	return m
}

// RegisterDeviceCount exports the registry size, read on every scrape.
func (m *Metrics) RegisterDeviceCount(count func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "devices",
		Help:      "Device records currently held in the registry.",
	}, count))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
