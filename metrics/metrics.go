// Package metrics bundles the Prometheus collectors shared by the harvester,
// the contact crawler and the answer aggregator. Every method is safe on a nil
// receiver so callers can run without metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors.
type Metrics struct {
	Registry                *prometheus.Registry
	ListingsDiscoveredTotal prometheus.Counter
	ScrollPollsTotal        prometheus.Counter
	RecordsExtractedTotal   prometheus.Counter
	ListingFailuresTotal    *prometheus.CounterVec
	WebsiteVisitsTotal      *prometheus.CounterVec
	RequestsTotal           *prometheus.CounterVec
	RequestDuration         prometheus.Histogram
	RetriesTotal            prometheus.Counter
	ErrorsTotal             *prometheus.CounterVec
	ChunkAnswersTotal       *prometheus.CounterVec
	LLMDuration             prometheus.Histogram
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	discovered := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_listings_discovered_total",
			Help: "Listing handles returned by the discovery loop.",
		},
	)
	polls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_scroll_polls_total",
			Help: "Scroll-and-count polls performed while discovering listings.",
		},
	)
	extracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_records_extracted_total",
			Help: "Business records produced by the detail extractor.",
		},
	)
	listingFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_listing_failures_total",
			Help: "Listings dropped at the per-listing boundary, by error type.",
		},
		[]string{"error_type"},
	)
	websiteVisits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_website_visits_total",
			Help: "Business websites opened for contact mining, by outcome.",
		},
		[]string{"outcome"},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_requests_total",
			Help: "HTTP requests issued for follow-up contact pages.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contact_request_duration_seconds",
			Help:    "HTTP latency for follow-up contact pages.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_errors_total",
			Help: "Total number of follow-up fetch errors by type.",
		},
		[]string{"error_type"},
	)
	chunkAnswers := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answer_chunks_total",
			Help: "Per-chunk language model exchanges, by status.",
		},
		[]string{"status"},
	)
	llmDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Language model call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	registry.MustRegister(discovered, polls, extracted, listingFailures, websiteVisits,
		requests, requestDuration, retries, errorsTotal, chunkAnswers, llmDuration)

	return &Metrics{
		Registry:                registry,
		ListingsDiscoveredTotal: discovered,
		ScrollPollsTotal:        polls,
		RecordsExtractedTotal:   extracted,
		ListingFailuresTotal:    listingFailures,
		WebsiteVisitsTotal:      websiteVisits,
		RequestsTotal:           requests,
		RequestDuration:         requestDuration,
		RetriesTotal:            retries,
		ErrorsTotal:             errorsTotal,
		ChunkAnswersTotal:       chunkAnswers,
		LLMDuration:             llmDuration,
	}
}

// AddDiscovered adds n discovered listings.
func (m *Metrics) AddDiscovered(n int) {
	if m == nil {
		return
	}
	m.ListingsDiscoveredTotal.Add(float64(n))
}

// IncPoll increments the scroll poll counter.
func (m *Metrics) IncPoll() {
	if m == nil {
		return
	}
	m.ScrollPollsTotal.Inc()
}

// IncRecord increments the extracted records counter.
func (m *Metrics) IncRecord() {
	if m == nil {
		return
	}
	m.RecordsExtractedTotal.Inc()
}

// IncListingFailure counts a dropped listing.
func (m *Metrics) IncListingFailure(errorType string) {
	if m == nil {
		return
	}
	m.ListingFailuresTotal.WithLabelValues(errorType).Inc()
}

// IncWebsiteVisit counts a website visit by outcome (mined, cached, failed).
func (m *Metrics) IncWebsiteVisit(outcome string) {
	if m == nil {
		return
	}
	m.WebsiteVisitsTotal.WithLabelValues(outcome).Inc()
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncChunk counts a chunk exchange with status "ok" or "failed".
func (m *Metrics) IncChunk(status string) {
	if m == nil {
		return
	}
	m.ChunkAnswersTotal.WithLabelValues(status).Inc()
}

// ObserveLLM records a language model call duration.
func (m *Metrics) ObserveLLM(d time.Duration) {
	if m == nil {
		return
	}
	m.LLMDuration.Observe(d.Seconds())
}
