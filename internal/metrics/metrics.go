// Package metrics holds the prometheus collectors for the listing engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup results.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupStale = "stale"
)

// Page fetch outcomes.
const (
	FetchApplied   = "applied"
	FetchHeld      = "held"
	FetchDiscarded = "discarded"
	FetchFailed    = "failed"
)

// Like toggle outcomes.
const (
	ToggleCommitted  = "committed"
	ToggleRolledBack = "rolled_back"
)

// Metrics groups the engine collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	CacheLookups  *prometheus.CounterVec
	PageFetches   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	LikeToggles   *prometheus.CounterVec
	StaleMarks    *prometheus.CounterVec
}

// New builds the collectors and registers them on reg when it is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinemoa_cache_lookups_total",
			Help: "Listing cache reads by result",
		}, []string{"result"}),
		PageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinemoa_page_fetches_total",
			Help: "Page fetches by signature family and outcome",
		}, []string{"family", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinemoa_page_fetch_duration_seconds",
			Help:    "Latency of listing page requests",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"family"}),
		LikeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinemoa_like_toggles_total",
			Help: "Like toggles by outcome",
		}, []string{"outcome"}),
		StaleMarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinemoa_stale_marks_total",
			Help: "Cache entries marked stale by lifecycle signal",
		}, []string{"signal"}),
	}
	if reg != nil {
		reg.MustRegister(m.CacheLookups, m.PageFetches, m.FetchDuration, m.LikeToggles, m.StaleMarks)
	}
	return m
}

// ObserveLookup counts a cache read.
func (m *Metrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveFetch counts a page fetch outcome and its latency.
func (m *Metrics) ObserveFetch(family, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PageFetches.WithLabelValues(family, outcome).Inc()
	m.FetchDuration.WithLabelValues(family).Observe(elapsed.Seconds())
}

// ObserveToggle counts a like toggle outcome.
func (m *Metrics) ObserveToggle(outcome string) {
	if m == nil {
		return
	}
	m.LikeToggles.WithLabelValues(outcome).Inc()
}

// ObserveStale counts entries marked stale for a signal.
func (m *Metrics) ObserveStale(signal string, marked int) {
	if m == nil || marked <= 0 {
		return
	}
	m.StaleMarks.WithLabelValues(signal).Add(float64(marked))
}

// Handler exposes the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
