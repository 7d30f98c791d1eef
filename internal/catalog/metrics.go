package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the catalog's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	lastPublish     prometheus.Gauge
	streams         prometheus.Gauge
	extensions      prometheus.Gauge
	probes          *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "catalog",
			Name:      "refreshes_total",
			Help:      "Catalog refresh cycles by outcome.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "launcher",
			Subsystem: "catalog",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of catalog refresh cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		lastPublish: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launcher",
			Subsystem: "catalog",
			Name:      "last_publish_timestamp_seconds",
			Help:      "Unix time of the last published snapshot.",
		}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launcher",
			Subsystem: "catalog",
			Name:      "streams",
			Help:      "Number of streams in the published snapshot.",
		}),
		extensions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "launcher",
			Subsystem: "catalog",
			Name:      "recommended_extensions",
			Help:      "Number of extensions in the recommended stream.",
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "catalog",
			Name:      "canary_probes_total",
			Help:      "Validation canary probes by canary and result.",
		}, []string{"canary", "result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "catalog",
			Name:      "resolutions_total",
			Help:      "Extension resolution requests by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.refreshes,
			m.refreshDuration,
			m.lastPublish,
			m.streams,
			m.extensions,
			m.probes,
			m.resolutions,
		)
	}
	return m
}

func (m *Metrics) observeRefresh(outcome RefreshOutcome, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(string(outcome)).Inc()
	m.refreshDuration.Observe(d.Seconds())
}

func (m *Metrics) observePublish(streams, recommendedExtensions int, at time.Time) {
	if m == nil {
		return
	}
	m.streams.Set(float64(streams))
	m.extensions.Set(float64(recommendedExtensions))
	m.lastPublish.Set(float64(at.Unix()))
}

func (m *Metrics) observeProbe(canary string, ok bool) {
	if m == nil {
		return
	}
	result := "pass"
	if !ok {
		result = "fail"
	}
	m.probes.WithLabelValues(canary, result).Inc()
}

func (m *Metrics) observeResolution(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.resolutions.WithLabelValues(result).Inc()
}
