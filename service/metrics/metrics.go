package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC metrics
	solanaRPCCallsTotal    *prometheus.CounterVec
	solanaRPCCallDuration  *prometheus.HistogramVec
	holderAccountsPerFetch *prometheus.HistogramVec

	// Audit pipeline metrics
	auditsTotal        *prometheus.CounterVec
	auditDuration      *prometheus.HistogramVec
	snapshotsCreated   *prometheus.CounterVec
	snapshotsDeduped   *prometheus.CounterVec
	holdersPerSnapshot *prometheus.HistogramVec

	// Whale tracking metrics
	whaleUpsertsTotal *prometheus.CounterVec

	// Price oracle metrics
	priceLookupsTotal *prometheus.CounterVec
	priceCacheTotal   *prometheus.CounterVec

	// Overlap comparison metrics
	comparesTotal   *prometheus.CounterVec
	compareDuration *prometheus.HistogramVec

	// Database metrics
	dbQueryDuration *prometheus.HistogramVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"method", "endpoint"},
		),
		holderAccountsPerFetch: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holder_accounts_per_fetch",
				Help:    "Number of token accounts returned per holder fetch",
				Buckets: []float64{10, 100, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"endpoint"},
		),
		auditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audits_total",
				Help: "Total number of audit requests by outcome",
			},
			[]string{"status"},
		),
		auditDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_duration_seconds",
				Help:    "End-to-end duration of audit requests in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"status"},
		),
		snapshotsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshots_created_total",
				Help: "Total number of snapshots created",
			},
			[]string{"token_address"},
		),
		snapshotsDeduped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshots_deduped_total",
				Help: "Total number of audit requests served from an existing snapshot",
			},
			[]string{"token_address"},
		),
		holdersPerSnapshot: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holders_per_snapshot",
				Help:    "Number of holders captured per snapshot",
				Buckets: []float64{10, 100, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"token_address"},
		),
		whaleUpsertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "whale_upserts_total",
				Help: "Total number of whale duration record upserts by status",
			},
			[]string{"status"},
		),
		priceLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_lookups_total",
				Help: "Total number of price oracle lookups by provider and status",
			},
			[]string{"provider", "status"},
		),
		priceCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_cache_total",
				Help: "Total number of price cache lookups by result",
			},
			[]string{"result"},
		),
		comparesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compares_total",
				Help: "Total number of multi-token compare requests by outcome",
			},
			[]string{"status"},
		),
		compareDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compare_duration_seconds",
				Help:    "End-to-end duration of compare requests in seconds",
				Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"status"},
		),
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"query"},
		),
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published by subject and status",
			},
			[]string{"subject", "status"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, seconds float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

// RecordHolderAccounts records the number of token accounts returned by a
// holder fetch.
func (m *Metrics) RecordHolderAccounts(endpoint string, count float64) {
	m.holderAccountsPerFetch.WithLabelValues(endpoint).Observe(count)
}

// RecordAudit records an audit request outcome with its duration.
func (m *Metrics) RecordAudit(status string, seconds float64) {
	m.auditsTotal.WithLabelValues(status).Inc()
	m.auditDuration.WithLabelValues(status).Observe(seconds)
}

// RecordSnapshotCreated records a created snapshot and its holder count.
func (m *Metrics) RecordSnapshotCreated(tokenAddress string, holders float64) {
	m.snapshotsCreated.WithLabelValues(tokenAddress).Inc()
	m.holdersPerSnapshot.WithLabelValues(tokenAddress).Observe(holders)
}

// RecordSnapshotDeduped records an audit request served from an existing
// snapshot.
func (m *Metrics) RecordSnapshotDeduped(tokenAddress string) {
	m.snapshotsDeduped.WithLabelValues(tokenAddress).Inc()
}

// RecordWhaleUpsert records a whale record upsert outcome.
func (m *Metrics) RecordWhaleUpsert(status string) {
	m.whaleUpsertsTotal.WithLabelValues(status).Inc()
}

// RecordPriceLookup records a price oracle lookup against one provider.
func (m *Metrics) RecordPriceLookup(provider, status string) {
	m.priceLookupsTotal.WithLabelValues(provider, status).Inc()
}

// RecordPriceCache records a price cache lookup result ("hit" or "miss").
func (m *Metrics) RecordPriceCache(result string) {
	m.priceCacheTotal.WithLabelValues(result).Inc()
}

// RecordCompare records a compare request outcome with its duration.
func (m *Metrics) RecordCompare(status string, seconds float64) {
	m.comparesTotal.WithLabelValues(status).Inc()
	m.compareDuration.WithLabelValues(status).Observe(seconds)
}

// RecordDBQuery records the duration of a database query.
func (m *Metrics) RecordDBQuery(query string, seconds float64) {
	m.dbQueryDuration.WithLabelValues(query).Observe(seconds)
}

// RecordNATSPublish records a NATS publish attempt.
func (m *Metrics) RecordNATSPublish(subject, status string) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
}
