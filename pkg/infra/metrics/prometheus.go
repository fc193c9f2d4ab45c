package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// QueueDepth is the live size of a matchmaking bucket, set by
	// QueueManager on every AddRequest/RemoveRequest.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matchmaking_queue_depth",
			Help: "Current number of searching requests in a matchmaking bucket",
		},
		[]string{"game_id", "game_mode", "region"},
	)

	MatchesFormedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_matches_formed_total",
			Help: "Total matches formed by the matchmaking scheduler",
		},
		[]string{"game_id", "game_mode", "region"},
	)

	FinalizeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchmaking_finalize_duration_seconds",
			Help:    "Time spent in finalizeMatch, from lock acquire to release",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"game_id"},
	)

	RelaxationAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_relaxation_applied_total",
			Help: "Total times criteria relaxation was applied to an aged request",
		},
		[]string{"game_id", "game_mode", "region"},
	)

	LockContentionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchmaking_lock_contention_total",
			Help: "Total times a finalize lock acquisition found the lock already held",
		},
		[]string{"game_id"},
	)

	SocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "socket_connections_current",
			Help: "Current number of connected WebSocket clients",
		},
	)

	SocketMessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socket_messages_sent_total",
			Help: "Total WebSocket messages delivered",
		},
		[]string{"event_type"},
	)

	SocketMessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "socket_messages_dropped_total",
			Help: "Total WebSocket messages dropped due to a full client send buffer",
		},
		[]string{"event_type"},
	)

	LobbiesActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lobby_active_current",
			Help: "Current lobbies by status",
		},
		[]string{"status"},
	)

	NotificationQueueDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_queue_dropped_total",
			Help: "Total notifications dropped because the worker pool queue was full",
		},
		[]string{"type"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "collection"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		start := time.Now()
		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

func normalizePath(path string) string {
	if len(path) > 50 {
		return path[:50]
	}
	return path
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordDBOperation(operation, collection string, duration time.Duration) {
	DatabaseOperationDuration.WithLabelValues(operation, collection).Observe(duration.Seconds())
}
