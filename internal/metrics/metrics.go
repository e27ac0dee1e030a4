package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reservation engine
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reserve calls by outcome",
		},
		[]string{"outcome"},
	)

	ReservedSeatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_reserved_seats_total",
			Help: "Seats moved from available to sold by reserve",
		},
	)

	SeatLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_seat_lock_wait_seconds",
			Help:    "Time spent acquiring seat row locks",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	LifecycleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_lifecycle_transitions_total",
			Help: "Confirm, cancel, use and expire calls by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ExpiredBookingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_expired_holds_total",
			Help: "Pending bookings cancelled by the hold expiry sweeper",
		},
	)

	// Stats cache
	StatsCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_stats_cache_requests_total",
			Help: "Stats cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// Publishing
	PublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_publish_errors_total",
			Help: "Failed lifecycle event publishes by topic",
		},
		[]string{"topic"},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveSince records the elapsed time on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by chi route pattern, so
// ids in paths do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
