// Package metrics provides Prometheus metrics for readerspec.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/readerspec/ports"
)

const namespace = "readerspec"

// Validation result label values.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
)

// Collector holds all Prometheus metrics for readerspec.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// Translation metrics
	Translations        *prometheus.CounterVec
	TranslationDuration prometheus.Histogram

	// Validation metrics
	Validations *prometheus.CounterVec

	// Watcher metrics
	WatcherEvents     prometheus.Counter
	DebounceCoalesced prometheus.Counter
	PendingTimers     prometheus.Gauge

	// Dev server metrics
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		Translations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translations_total",
				Help:      "Total number of document translations by result",
			},
			[]string{"result"},
		),
		TranslationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "translation_duration_seconds",
				Help:      "Translation duration in seconds, including the completion call",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of document validations by result",
			},
			[]string{"result"},
		),
		WatcherEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watcher_events_total",
				Help:      "Total number of document change events seen by the watcher",
			},
		),
		DebounceCoalesced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "debounce_coalesced_total",
				Help:      "Total number of change events folded into an already armed timer",
			},
		),
		PendingTimers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watcher_pending_timers",
				Help:      "Number of armed debounce timers",
			},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Dev server request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of dev server requests being served",
			},
		),
	}
}

// ObserveTranslation records one translation outcome. Skipped runs are
// counted but not timed.
func (c *Collector) ObserveTranslation(result string, d time.Duration) {
	if c == nil {
		return
	}
	c.Translations.WithLabelValues(result).Inc()
	if result != ports.TranslationSkipped {
		c.TranslationDuration.Observe(d.Seconds())
	}
}

// ObserveValidation records one validation outcome.
func (c *Collector) ObserveValidation(valid bool) {
	if c == nil {
		return
	}
	result := ResultInvalid
	if valid {
		result = ResultValid
	}
	c.Validations.WithLabelValues(result).Inc()
}

// ObserveEvent records a watcher event. coalesced is true when the event
// replaced an armed timer.
func (c *Collector) ObserveEvent(coalesced bool) {
	if c == nil {
		return
	}
	c.WatcherEvents.Inc()
	if coalesced {
		c.DebounceCoalesced.Inc()
	}
}

// SetPending records the number of armed timers.
func (c *Collector) SetPending(n int) {
	if c == nil {
		return
	}
	c.PendingTimers.Set(float64(n))
}

// ObserveRequest records one dev server request. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Ensure interface compliance.
var _ ports.Metrics = (*Collector)(nil)
