package middleware

import (
	"net/http"
	"sync/atomic"
	"time"
)

// MetricsCollector counts requests by outcome and accumulates latency.
type MetricsCollector struct {
	requests     atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	latencyNanos atomic.Int64
}

// RequestMetrics is a point-in-time copy of the counters.
type RequestMetrics struct {
	Requests      int64   `json:"request_count"`
	ClientErrors  int64   `json:"client_error_count"`
	ServerErrors  int64   `json:"server_error_count"`
	MeanLatencyMS float64 `json:"mean_latency_ms"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		mc.requests.Add(1)
		mc.latencyNanos.Add(int64(time.Since(start)))
		switch {
		case rw.statusCode >= 500:
			mc.serverErrors.Add(1)
		case rw.statusCode >= 400:
			mc.clientErrors.Add(1)
		}
	})
}

func (mc *MetricsCollector) Snapshot() RequestMetrics {
	m := RequestMetrics{
		Requests:     mc.requests.Load(),
		ClientErrors: mc.clientErrors.Load(),
		ServerErrors: mc.serverErrors.Load(),
	}
	if m.Requests > 0 {
		m.MeanLatencyMS = float64(mc.latencyNanos.Load()) / float64(m.Requests) / float64(time.Millisecond)
	}
	return m
}
