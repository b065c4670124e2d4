// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "greeno"

// Metrics owns a registry and the collectors registered on it.
// All Record methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	transfers           *prometheus.CounterVec
	contractRecords     *prometheus.CounterVec
	persistenceFailures prometheus.Counter
	rateFetches         *prometheus.CounterVec
	rateCacheHits       *prometheus.CounterVec
}

// New builds a Metrics instance with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"service", "method", "path"}),

		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Token transfers submitted, by receipt status.",
		}, []string{"status"}),
		contractRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "records_total",
			Help:      "Purchase recordings on the ledger contract, by result.",
		}, []string{"result"}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "write_failures_total",
			Help:      "Transaction mirror writes that failed after a successful transfer.",
		}),
		rateFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "fetches_total",
			Help:      "Exchange rate fetches from upstream sources.",
		}, []string{"source", "result"}),
		rateCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "cache_lookups_total",
			Help:      "Exchange rate cache lookups.",
		}, []string{"result"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.transfers,
		m.contractRecords,
		m.persistenceFailures,
		m.rateFetches,
		m.rateCacheHits,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementInFlight() {
	if m != nil {
		m.httpInFlight.Inc()
	}
}

func (m *Metrics) DecrementInFlight() {
	if m != nil {
		m.httpInFlight.Dec()
	}
}

// RecordHTTPRequest records a completed request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordTransfer counts a transfer by its receipt status.
func (m *Metrics) RecordTransfer(status string) {
	if m == nil {
		return
	}
	if status == "" {
		status = "UNKNOWN"
	}
	m.transfers.WithLabelValues(status).Inc()
}

// RecordContractRecord counts a contract recording attempt.
func (m *Metrics) RecordContractRecord(ok bool) {
	if m == nil {
		return
	}
	m.contractRecords.WithLabelValues(result(ok)).Inc()
}

// RecordPersistenceFailure counts a failed mirror write.
func (m *Metrics) RecordPersistenceFailure() {
	if m != nil {
		m.persistenceFailures.Inc()
	}
}

// RecordRateFetch counts an upstream exchange rate fetch.
func (m *Metrics) RecordRateFetch(source string, ok bool) {
	if m == nil {
		return
	}
	m.rateFetches.WithLabelValues(source, result(ok)).Inc()
}

// RecordRateCache counts a cache hit or miss.
func (m *Metrics) RecordRateCache(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.rateCacheHits.WithLabelValues(label).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
