package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	ChecksTotal        *prometheus.CounterVec
	FieldFillsTotal    *prometheus.CounterVec
	FillAttemptsTotal  prometheus.Counter
	SubmitFailures     prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
	RecordErrorsTotal  *prometheus.CounterVec
	CheckDuration      prometheus.Histogram
	SignalCount        *prometheus.GaugeVec
	LastCheckTimestamp prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers every metric on a fresh registry, so separate runs
// (and tests) never collide on the global one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_checks_total",
			Help: "Availability checks by outcome.",
		}, []string{"outcome"}), // available, unavailable, failed, error
		FieldFillsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_field_fills_total",
			Help: "Booking form field fills by field and status.",
		}, []string{"field", "status"}), // filled, skipped
		FillAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ferry_fill_attempts_total",
			Help: "Whole-form fill attempts, including retries.",
		}),
		SubmitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ferry_submit_failures_total",
			Help: "Runs where no search trigger could be clicked.",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_notifications_total",
			Help: "Notification deliveries by status.",
		}, []string{"status"}),
		RecordErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_record_errors_total",
			Help: "Result recorder failures by sink.",
		}, []string{"sink"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ferry_check_duration_seconds",
			Help:    "Duration of a full availability check.",
			Buckets: []float64{5, 15, 30, 60, 90, 120, 180, 300},
		}),
		SignalCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ferry_last_signal_count",
			Help: "Signal counts of the most recent classified page.",
		}, []string{"channel"}),
		LastCheckTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ferry_last_check_timestamp_seconds",
			Help: "Unix time of the most recent completed check.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_http_requests_total",
			Help: "API requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ferry_http_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) IncCheck(outcome string) {
	m.ChecksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncFieldFill(field string, filled bool) {
	status := "skipped"
	if filled {
		status = "filled"
	}
	m.FieldFillsTotal.WithLabelValues(field, status).Inc()
}

func (m *Metrics) IncNotification(status string) {
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncRecordError(sink string) {
	m.RecordErrorsTotal.WithLabelValues(sink).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	c := strconv.Itoa(code)
	m.HTTPRequestsTotal.WithLabelValues(method, route, c).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, c).Observe(d.Seconds())
}

// ObserveSignal publishes the per-channel counts of one classification.
func (m *Metrics) ObserveSignal(structuralAvailable, structuralUnavailable, lexicalPositive, lexicalNegative int) {
	m.SignalCount.WithLabelValues("structural_available").Set(float64(structuralAvailable))
	m.SignalCount.WithLabelValues("structural_unavailable").Set(float64(structuralUnavailable))
	m.SignalCount.WithLabelValues("lexical_positive").Set(float64(lexicalPositive))
	m.SignalCount.WithLabelValues("lexical_negative").Set(float64(lexicalNegative))
}
