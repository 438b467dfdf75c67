package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tally_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tally_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	reportCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_report_cache_hits_total",
		Help: "Report cache hits.",
	})

	reportCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_report_cache_misses_total",
		Help: "Report cache misses.",
	})

	reportBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tally_report_build_duration_seconds",
		Help:    "Time spent loading data and building a report.",
		Buckets: prometheus.DefBuckets,
	})
)

// observe records request counts and latency per chi route pattern, so
// /api/transactions/{id} stays one label value regardless of the id.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
