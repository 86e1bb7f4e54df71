package viewer

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the preview server's own registry, so tests and
// multiple servers in one process never collide on registration.
type metrics struct {
	registry      *prometheus.Registry
	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Histogram
	watchEvents   prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		buildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grapher_builds_total",
			Help: "Graph builds by status.",
		}, []string{"status"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grapher_build_duration_seconds",
			Help:    "Time spent building the graph.",
			Buckets: prometheus.DefBuckets,
		}),
		watchEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grapher_watch_events_total",
			Help: "Filesystem events seen by the watcher.",
		}),
	}
	m.registry.MustRegister(m.buildsTotal, m.buildDuration, m.watchEvents)
	return m
}

func (m *metrics) observeBuild(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.buildsTotal.WithLabelValues(status).Inc()
	m.buildDuration.Observe(d.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
