package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// MessagesAppended counts conversation messages appended by sender type and kind.
	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_chat_messages_appended_total",
		Help: "Total number of conversation messages appended",
	}, []string{"sender_type", "kind"})

	// OrdersPlaced counts successful checkouts.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atelier_orders_placed_total",
		Help: "Total number of orders placed through checkout",
	})

	// CheckoutFailures counts rejected checkouts by reason.
	CheckoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_checkout_failures_total",
		Help: "Total number of rejected checkout attempts",
	}, []string{"reason"})

	// CatalogQueryLatency records catalog list query latency in seconds.
	CatalogQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atelier_catalog_query_latency_seconds",
		Help:    "Catalog list query latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
