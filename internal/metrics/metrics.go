package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the node's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "transfer_ledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfer_ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "transfer_ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	contractCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfer_ledger",
			Subsystem: "contract",
			Name:      "calls_total",
			Help:      "Total number of ledger contract calls by method and outcome.",
		},
		[]string{"method", "success"},
	)

	recordCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "transfer_ledger",
			Subsystem: "contract",
			Name:      "records",
			Help:      "Number of transfer records in the ledger.",
		},
	)

	valueTransfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfer_ledger",
			Subsystem: "native",
			Name:      "transfers_total",
			Help:      "Total number of native value transfers by outcome.",
		},
		[]string{"success"},
	)

	eventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "transfer_ledger",
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Events that could not be handed to the publisher.",
		},
		[]string{"topic"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		contractCalls,
		recordCount,
		valueTransfers,
		eventPublishFailures,
	)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request counting and latency tracking.
// pathLabel should be a route template, not the raw URL, to bound label
// cardinality.
func InstrumentHandler(next http.Handler, pathLabel func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := pathLabel(r)
		httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RecordContractCall(method string, success bool) {
	contractCalls.WithLabelValues(method, strconv.FormatBool(success)).Inc()
}

func SetRecordCount(n uint64) {
	recordCount.Set(float64(n))
}

func RecordValueTransfer(success bool) {
	valueTransfers.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordPublishFailure(topic string) {
	eventPublishFailures.WithLabelValues(topic).Inc()
}
