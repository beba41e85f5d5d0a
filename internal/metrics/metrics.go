// Package metrics provides Prometheus metrics for the Deckistry server.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckistry_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deckistry_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Scryfall API Metrics
	ScryfallRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckistry_scryfall_requests_total",
			Help: "Total number of Scryfall API requests",
		},
		[]string{"endpoint", "result"}, // result: "ok", "not_found", "error", "canceled"
	)

	ScryfallRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deckistry_scryfall_request_duration_seconds",
			Help:    "Scryfall API latency in seconds, including rate limiter wait",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Card Cache Metrics
	CardCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckistry_card_cache_requests_total",
			Help: "Card resolutions by the layer that answered",
		},
		[]string{"layer"}, // "memory", "database", "remote"
	)

	// Deck Engine Metrics
	DeckMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckistry_deck_mutations_total",
			Help: "Deck mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	DeckValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckistry_deck_validations_total",
			Help: "Full deck validations by format and result",
		},
		[]string{"format", "result"}, // result: "valid", "invalid"
	)

	ImportLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckistry_import_lines_total",
			Help: "Decklist import lines by outcome",
		},
		[]string{"outcome"}, // "imported", "failed", "rejected", "malformed", "maybeboard"
	)

	OpenSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deckistry_open_sessions",
			Help: "Number of decks with an open editing session",
		},
	)

	// Image Backfill Metrics
	ImageBackfillTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckistry_image_backfill_total",
			Help: "Cards processed by the image backfill worker",
		},
		[]string{"result"}, // "updated", "missing", "failed"
	)

	// Card Database Metrics
	CardDatabaseSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deckistry_card_database_size",
			Help: "Number of card printings stored in the database",
		},
	)

	// Realtime Metrics
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deckistry_websocket_clients",
			Help: "Number of connected deck event subscribers",
		},
	)
)

// Middleware records request count and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
