package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatusRefreshesTotal tracks market status refreshes by result
	StatusRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_status_refreshes_total",
			Help: "Total number of market status refreshes",
		},
		[]string{"result"},
	)

	// StatusRefreshLatency tracks refresh round-trip latency
	StatusRefreshLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_status_refresh_latency_seconds",
			Help:    "Market status refresh latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ChainHeight tracks the latest observed block height
	ChainHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_chain_height",
			Help: "Latest block height observed from the head subscription",
		},
	)

	// ActiveSubscriptions tracks live head subscriptions by owner count
	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_active_subscriptions",
			Help: "Number of live head subscriptions",
		},
	)

	// EventsDropped tracks bus events dropped due to slow consumers
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_events_dropped_total",
			Help: "Total number of bus events dropped by slow consumers",
		},
		[]string{"event"},
	)

	// BlocksIngested tracks blocks scanned for wallet activity
	BlocksIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_blocks_ingested_total",
			Help: "Total number of blocks scanned for wallet transactions",
		},
	)

	// WalletTxsObserved tracks wallet transactions picked up by ingest
	WalletTxsObserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_wallet_txs_observed_total",
			Help: "Total number of wallet transactions observed",
		},
	)
)
