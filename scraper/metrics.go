package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for fetches, searches and
// discovery requests. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
	SearchesTotal   *prometheus.CounterVec
	LeadsTotal      *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TargetsTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_fetches_total",
			Help: "Total page fetches by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadscout_fetch_duration_seconds",
			Help:    "Latency of completed page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_fetch_errors_total",
			Help: "Total fetch errors by type.",
		},
		[]string{"error_type"},
	)
	searches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_searches_total",
			Help: "Total search queries by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	leads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_leads_total",
			Help: "Total leads returned by confidence tier.",
		},
		[]string{"tier"},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_requests_total",
			Help: "Total discovery requests by mode and status.",
		},
		[]string{"mode", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscout_request_duration_seconds",
			Help:    "Latency of discovery requests by mode.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"mode"},
	)
	targets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_bulk_targets_total",
			Help: "Total bulk targets by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(fetches, fetchDuration, errorsTotal, searches, leads, requests, requestDuration, targets)

	return &Metrics{
		Registry:        registry,
		FetchesTotal:    fetches,
		FetchDuration:   fetchDuration,
		ErrorsTotal:     errorsTotal,
		SearchesTotal:   searches,
		LeadsTotal:      leads,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		TargetsTotal:    targets,
	}
}

// IncFetch increments the fetches counter for an outcome.
func (m *Metrics) IncFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records a fetch duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncSearch increments the searches counter.
func (m *Metrics) IncSearch(provider, outcome string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(provider, outcome).Inc()
}

// AddLeads counts returned leads for a tier.
func (m *Metrics) AddLeads(tier string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LeadsTotal.WithLabelValues(tier).Add(float64(n))
}

// ObserveRequest records one finished discovery request.
func (m *Metrics) ObserveRequest(mode, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(mode, status).Inc()
	m.RequestDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// IncTarget increments the bulk targets counter.
func (m *Metrics) IncTarget(outcome string) {
	if m == nil {
		return
	}
	m.TargetsTotal.WithLabelValues(outcome).Inc()
}
