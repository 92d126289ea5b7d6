// Package observability provides Prometheus metrics for the buy feed.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Polling metrics
	PollsTotal       *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	BuysClassified   prometheus.Counter
	BuysMerged       prometheus.Counter
	RoundDuration    *prometheus.HistogramVec
	RoundsDiscarded  prometheus.Counter
	TrackedWallets   prometheus.Gauge
	LastRoundSuccess prometheus.Gauge

	// Feed metrics
	FeedSize prometheus.Gauge

	// Metadata cache metrics
	MetadataLookups *prometheus.CounterVec
	MetadataEntries prometheus.Gauge

	// Source latency
	SourceLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "buyfeed"
	}

	return &Metrics{
		PollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "polls_total",
			Help:      "Total number of wallet polls by outcome",
		}, []string{"status"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed external fetches",
		}, []string{"source"}),
		BuysClassified: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "buys_classified_total",
			Help:      "Total number of transactions classified as buys",
		}),
		BuysMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "buys_merged_total",
			Help:      "Total number of new buys merged into the feed",
		}),
		RoundDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "round_duration_seconds",
			Help:      "Duration of polling rounds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"kind"}),
		RoundsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "rounds_discarded_total",
			Help:      "Rounds whose results were dropped because monitoring was restarted or stopped",
		}),
		TrackedWallets: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tracked_wallets",
			Help:      "Number of wallets currently tracked",
		}),
		LastRoundSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_round_timestamp",
			Help:      "Unix time of the last committed polling round",
		}),
		FeedSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "size",
			Help:      "Number of events currently in the feed",
		}),
		MetadataLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "lookups_total",
			Help:      "Token metadata lookups by result",
		}, []string{"result"}),
		MetadataEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "entries",
			Help:      "Number of cached token metadata entries",
		}),
		SourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "latency_seconds",
			Help:      "External source call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPoll records the outcome of one wallet poll ("ok" or "error").
func RecordPoll(status string) {
	DefaultMetrics.PollsTotal.WithLabelValues(status).Inc()
}

// RecordFetchError records a failed call to an external source.
func RecordFetchError(source string) {
	DefaultMetrics.FetchErrors.WithLabelValues(source).Inc()
}

// RecordBuysClassified adds n classified buys.
func RecordBuysClassified(n int) {
	DefaultMetrics.BuysClassified.Add(float64(n))
}

// RecordRound records a committed round of the given kind ("start" or "tick").
func RecordRound(kind string, seconds float64, merged, feedSize, wallets int, unixNow int64) {
	DefaultMetrics.RoundDuration.WithLabelValues(kind).Observe(seconds)
	DefaultMetrics.BuysMerged.Add(float64(merged))
	DefaultMetrics.FeedSize.Set(float64(feedSize))
	DefaultMetrics.TrackedWallets.Set(float64(wallets))
	DefaultMetrics.LastRoundSuccess.Set(float64(unixNow))
}

// RecordRoundDiscarded increments the discarded rounds counter.
func RecordRoundDiscarded() {
	DefaultMetrics.RoundsDiscarded.Inc()
}

// RecordMetadataLookup records a cache lookup ("hit", "miss", "native").
func RecordMetadataLookup(result string, entries int) {
	DefaultMetrics.MetadataLookups.WithLabelValues(result).Inc()
	DefaultMetrics.MetadataEntries.Set(float64(entries))
}

// RecordSourceLatency records external call latency.
func RecordSourceLatency(source string, seconds float64) {
	DefaultMetrics.SourceLatency.WithLabelValues(source).Observe(seconds)
}
