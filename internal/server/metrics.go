package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitit_http_requests_total",
		Help: "HTTP requests by method, route, and status code.",
	}, []string{"method", "route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitit_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	splitsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitit_splits_computed_total",
		Help: "Split computations performed, persisted or not.",
	})

	replacesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitit_allocation_replaces_rejected_total",
		Help: "Allocation replacements rejected by validation.",
	})
)

// metricsMiddleware records request counts and latency per route.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		requestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}
