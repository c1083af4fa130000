package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metricsRegistry exposes the middleware counters, read at scrape time.
func (s *Server) metricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of completed HTTP requests.",
		}, func() float64 {
			return float64(s.traceMiddleware.GetMetrics().TotalRequests)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "http_request_duration_ms_avg",
			Help: "Mean request duration in milliseconds.",
		}, func() float64 {
			return s.traceMiddleware.GetMetrics().AverageMs()
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter.",
		}, func() float64 {
			return float64(s.rateLimiter.GetMetrics().TotalHits)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rate_limit_clients",
			Help: "Clients currently tracked by the rate limiter.",
		}, func() float64 {
			return float64(s.rateLimiter.GetMetrics().ClientCount)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "suspicious_requests_total",
			Help: "Requests flagged as suspicious.",
		}, func() float64 {
			return float64(s.detector.SuspiciousRequests())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "uptime_seconds",
			Help: "Process uptime in seconds.",
		}, func() float64 {
			return time.Since(s.started).Seconds()
		}),
	)
	return reg
}
