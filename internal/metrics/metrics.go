// Package metrics exposes player and tick metrics for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "worldgate"

// Metrics holds the server's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	playersConnected prometheus.Counter
	playersOnline    prometheus.Gauge
	loginsRejected   *prometheus.CounterVec
	tickDuration     prometheus.Histogram
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		playersConnected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_connected_total",
			Help:      "Number of sessions admitted into the world.",
		}),
		playersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_online",
			Help:      "Number of sessions currently in the roster.",
		}),
		loginsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_rejected_total",
			Help:      "Number of rejected logins by reason.",
		}, []string{"reason"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one admission tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	m.registry.MustRegister(m.playersConnected, m.playersOnline, m.loginsRejected, m.tickDuration)
	return m
}

// PlayerConnected counts an admitted session
func (m *Metrics) PlayerConnected() {
	m.playersConnected.Inc()
}

// LoginRejected counts a rejected login
func (m *Metrics) LoginRejected(reason string) {
	m.loginsRejected.WithLabelValues(reason).Inc()
}

// SetPlayersOnline records the roster size
func (m *Metrics) SetPlayersOnline(n int) {
	m.playersOnline.Set(float64(n))
}

// ObserveTick records the duration of one tick
func (m *Metrics) ObserveTick(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
