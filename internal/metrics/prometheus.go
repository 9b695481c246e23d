package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Analysis metrics
	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxpower_analyses_total",
			Help: "Total number of analysis requests",
		},
		[]string{"ticker", "status"}, // status: success|no_data|error
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maxpower_analysis_duration_seconds",
			Help:    "End to end analysis duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"ticker"},
	)

	ScoredLevels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "maxpower_scored_levels",
			Help: "Number of scored levels in the latest analysis",
		},
		[]string{"ticker"},
	)

	// Provider metrics
	ChainFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxpower_chain_fetches_total",
			Help: "Total number of per-expiration chain fetches",
		},
		[]string{"ticker", "status"}, // status: success|not_found|error
	)

	// Cache metrics
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxpower_cache_lookups_total",
			Help: "Total number of chain cache lookups",
		},
		[]string{"result"}, // result: hit|miss|error
	)

	// WebSocket metrics
	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "maxpower_websocket_connections",
			Help: "Number of connected websocket clients",
		},
	)

	// Notification metrics
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maxpower_notifications_total",
			Help: "Total number of notifications sent",
		},
		[]string{"channel", "status"},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(Analyses)
		prometheus.MustRegister(AnalysisDuration)
		prometheus.MustRegister(ScoredLevels)
		prometheus.MustRegister(ChainFetches)
		prometheus.MustRegister(CacheLookups)
		prometheus.MustRegister(WebSocketConnections)
		prometheus.MustRegister(Notifications)
	})
}

// Handler returns the HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAnalysis records one finished analysis.
func ObserveAnalysis(ticker, status string, started time.Time, levels int) {
	Analyses.WithLabelValues(ticker, status).Inc()
	AnalysisDuration.WithLabelValues(ticker).Observe(time.Since(started).Seconds())
	if status == "success" {
		ScoredLevels.WithLabelValues(ticker).Set(float64(levels))
	}
}
