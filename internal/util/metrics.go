package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created in the modern store",
	})

	OrdersDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_degraded_total",
		Help: "Total number of orders created with a failed legacy write",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of order creations that failed",
	}, []string{"reason"})

	LegacySyncRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legacy_sync_retries_total",
		Help: "Total number of legacy reconciliation retries",
	}, []string{"result"})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of applied status transitions",
	}, []string{"target"})

	InvalidTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_invalid_transitions_total",
		Help: "Total number of rejected status transitions",
	})

	StoreWriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_write_latency_seconds",
		Help:    "Latency of writes per backing store",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})

	TaxSummariesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tax_summaries_computed_total",
		Help: "Total number of order tax summaries computed",
	})

	ShippingQuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_quotes_total",
		Help: "Total number of shipping quotes by resolved zone",
	}, []string{"zone"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
