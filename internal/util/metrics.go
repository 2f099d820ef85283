package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersAutoApprovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_auto_approved_total",
		Help: "Total number of orders auto-approved by the gateway",
	}, []string{"reason"})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of orders rejected by policy",
	}, []string{"reason"})

	OrdersQueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_queued_for_review_total",
		Help: "Total number of orders queued for manual review",
	})

	OrdersInvalidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_invalid_total",
		Help: "Total number of approval requests failing validation",
	})

	ApprovalErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "approval_errors_total",
		Help: "Total number of approval evaluations failing on store access",
	}, []string{"stage"})

	ManualOverridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manual_overrides_total",
		Help: "Total number of manual override decisions",
	}, []string{"decision"})

	ApprovalDecisionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "approval_decision_latency_seconds",
		Help:    "Latency of order approval evaluations",
		Buckets: prometheus.DefBuckets,
	})

	StockChecksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_checks_failed_total",
		Help: "Total number of orders blocked by insufficient stock",
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
