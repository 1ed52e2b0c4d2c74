package handler

import (
	"math/big"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fundpoolDepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundpool_deposits_total",
		Help: "Total deposit attempts by result.",
	}, []string{"result"})

	fundpoolWithdrawalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundpool_withdrawals_total",
		Help: "Total withdrawal attempts by result and variant.",
	}, []string{"result", "variant"})

	fundpoolBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fundpool_balance_native_units",
		Help: "Pool balance in native units (approximate above 2^53).",
	})

	fundpoolContributors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fundpool_contributors",
		Help: "Distinct contributors in the current funding cycle.",
	})

	fundpoolRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundpool_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	fundpoolRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fundpool_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fundpoolRequestsTotal.WithLabelValues(method, path, status).Inc()
		fundpoolRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordDeposit records a deposit attempt.
func RecordDeposit(success bool) {
	fundpoolDepositsTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordWithdrawal records a withdrawal attempt for the given variant
// ("plain" or "compact").
func RecordWithdrawal(success bool, variant string) {
	fundpoolWithdrawalsTotal.WithLabelValues(resultLabel(success), variant).Inc()
}

// SetPoolGauges updates the balance and contributor gauges. The 18-decimal
// balance is scaled to whole native units for the gauge.
func SetPoolGauges(balance *big.Int, contributors int) {
	units, _ := new(big.Float).Quo(
		new(big.Float).SetInt(balance),
		big.NewFloat(1e18),
	).Float64()
	fundpoolBalance.Set(units)
	fundpoolContributors.Set(float64(contributors))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
