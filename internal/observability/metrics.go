package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crs_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	HoldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crs_holds_total",
			Help: "Slot hold attempts by result",
		},
		[]string{"result"},
	)

	PaymentSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crs_payment_sessions_total",
			Help: "Payment sessions opened by method",
		},
		[]string{"method"},
	)

	FinalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crs_finalize_total",
			Help: "Finalizer outcomes by terminal state",
		},
		[]string{"state"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crs_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crs_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crs_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crs_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
