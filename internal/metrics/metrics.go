// Package metrics exposes Prometheus counters for the parts of the site that
// fail quietly: dropped analytics, image fallbacks and deduplicated creates.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fareja"

// Event outcomes at the collector's door.
const (
	EventQueued  = "queued"
	EventBlocked = "blocked"
	EventDropped = "dropped"
)

// Image pipeline outcomes.
const (
	ImageStored      = "stored"
	ImageFallback    = "fallback"
	ImagePlaceholder = "placeholder"
)

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Tracking events by kind and what the collector did with them.",
	}, []string{"kind", "outcome"})

	EventsFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_flushed_total",
		Help:      "Tracking events written to the database.",
	})

	FlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flush_errors_total",
		Help:      "Analytics batches lost to a failed write.",
	})

	ImagesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "images_resolved_total",
		Help:      "Image pipeline runs by outcome.",
	}, []string{"outcome"})

	PromotionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotions_created_total",
		Help:      "Create requests by result: created or duplicate.",
	}, []string{"result"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records every request under its chi route pattern, so
// /p/{shortId} is one series rather than one per promotion.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
