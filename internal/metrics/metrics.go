// Package metrics exposes Prometheus instrumentation for the subscription
// service. Collectors are registered on the default registry and served by
// promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubscribeRequests counts subscribe calls by outcome:
	// "created", "already_subscribed", "invalid", "error".
	SubscribeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_subscribe_requests_total",
			Help: "Total number of subscribe requests by outcome",
		},
		[]string{"outcome"},
	)

	// UnsubscribeRequests counts unsubscribe calls by outcome:
	// "removed", "not_subscribed", "invalid", "error".
	UnsubscribeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_unsubscribe_requests_total",
			Help: "Total number of unsubscribe requests by outcome",
		},
		[]string{"outcome"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_store_errors_total",
			Help: "Total number of key-value store failures by API operation",
		},
		[]string{"operation"},
	)

	ExportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_export_rows_total",
			Help: "Total number of subscriber rows exported by format",
		},
		[]string{"format"},
	)

	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscription_live_clients",
			Help: "Current number of connected live activity websocket clients",
		},
	)
)
