package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_cart_items_added_total",
		Help: "Total number of units added to the cart",
	})

	CartCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_cart_cancelled_total",
		Help: "Total number of carts abandoned with stock restored",
	})

	StockReservationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_stock_reservations_failed_total",
		Help: "Total number of rejected stock reservations",
	}, []string{"reason"})

	SalesCommittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_committed_total",
		Help: "Total number of sales durably committed",
	}, []string{"payment_method"})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_failed_total",
		Help: "Total number of failed sale commits",
	}, []string{"reason"})

	SaleRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_sale_revenue_total",
		Help: "Sum of committed sale totals, tax included",
	})

	SaleCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_sale_commit_latency_seconds",
		Help:    "Latency of the transactional sale commit",
		Buckets: prometheus.DefBuckets,
	})

	QRGenerationFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_qr_generation_failed_total",
		Help: "Total number of QR payment codes that could not be generated",
	})

	LowStockProducts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_low_stock_events_total",
		Help: "Total number of times a product dropped below the low stock threshold",
	})

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
