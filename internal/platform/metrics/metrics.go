package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the stream relay.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	playlistsRelayedTotal prometheus.Counter
	segmentsProxiedTotal  prometheus.Counter
	catalogRefreshesTotal prometheus.Counter
	upstreamErrorsTotal   prometheus.Counter
	errorsTotal           prometheus.Counter
	liveMatches           prometheus.Gauge
	relaySessions         prometheus.Gauge
}

// New creates and registers Prometheus metrics for the relay.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "Total number of HTTP requests received",
	})
	playlistsRelayedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_playlists_relayed_total",
		Help: "Total number of master playlists fetched, rewritten, and served",
	})
	segmentsProxiedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_segments_proxied_total",
		Help: "Total number of media segments streamed from the origin",
	})
	catalogRefreshesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_catalog_refreshes_total",
		Help: "Total number of successful match feed fetches",
	})
	upstreamErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_upstream_errors_total",
		Help: "Total number of failed upstream fetches (feed, playlist, or segment)",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	liveMatches := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_live_matches",
		Help: "Number of live matches in the current catalog snapshot",
	})
	relaySessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_sessions",
		Help: "Number of matches with a recorded playlist base URL",
	})

	registry.MustRegister(
		requestsTotal,
		playlistsRelayedTotal,
		segmentsProxiedTotal,
		catalogRefreshesTotal,
		upstreamErrorsTotal,
		errorsTotal,
		liveMatches,
		relaySessions,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		playlistsRelayedTotal: playlistsRelayedTotal,
		segmentsProxiedTotal:  segmentsProxiedTotal,
		catalogRefreshesTotal: catalogRefreshesTotal,
		upstreamErrorsTotal:   upstreamErrorsTotal,
		errorsTotal:           errorsTotal,
		liveMatches:           liveMatches,
		relaySessions:         relaySessions,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncPlaylistsRelayed increments the playlists relayed counter.
func (m *Metrics) IncPlaylistsRelayed() {
	m.playlistsRelayedTotal.Inc()
}

// IncSegmentsProxied increments the segments proxied counter.
func (m *Metrics) IncSegmentsProxied() {
	m.segmentsProxiedTotal.Inc()
}

// IncCatalogRefreshes increments the catalog refresh counter.
func (m *Metrics) IncCatalogRefreshes() {
	m.catalogRefreshesTotal.Inc()
}

// IncUpstreamErrors increments the upstream error counter.
func (m *Metrics) IncUpstreamErrors() {
	m.upstreamErrorsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// SetLiveMatches sets the live matches gauge.
func (m *Metrics) SetLiveMatches(n int) {
	m.liveMatches.Set(float64(n))
}

// SetRelaySessions sets the relay sessions gauge.
func (m *Metrics) SetRelaySessions(n int) {
	m.relaySessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. live matches, recorded sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
