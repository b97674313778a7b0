package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.DefaultRegisterer

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route/method/code.",
		},
		[]string{"path", "method", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route/method/code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "code"},
	)

	poolState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_pool_state",
			Help: "Connection pool state: 0 uninitialized, 1 connecting, 2 ready, 3 failed.",
		},
	)

	poolConnectAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "db_pool_connect_attempts_total",
			Help: "Physical connection attempts made by the pool.",
		},
	)

	txEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_transactions_total",
			Help: "Transactions by operation and result.",
		},
		[]string{"op", "result"},
	)

	txDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_transaction_duration_seconds",
			Help:    "Duration of transactions by operation and result.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	liveMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_messages_total",
			Help: "Live feed messages published by type.",
		},
		[]string{"type"},
	)

	danglingTeamRefs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "players_dangling_team_refs",
			Help: "Players whose team_id resolves to no team, as of the last drift report.",
		},
	)
)

// Middleware records request count and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := routeLabel(r)
		if path == "/metrics" || strings.HasPrefix(path, "/ws/") {
			return
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)

		httpRequests.WithLabelValues(path, r.Method, code).Inc()
		httpDuration.WithLabelValues(path, r.Method, code).Observe(time.Since(start).Seconds())
	})
}

// unmatchedRoute labels every request no route matched.
const unmatchedRoute = "unmatched"

// routeLabel returns the chi route pattern of a served request.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// SetPoolState records the numeric value of db.State.
func SetPoolState(state int) {
	poolState.Set(float64(state))
}

func IncPoolConnectAttempts() {
	poolConnectAttempts.Inc()
}

func ObserveTx(op string, start time.Time, err error) {
	result := "commit"
	if err != nil {
		result = "rollback"
	}
	txEvents.WithLabelValues(op, result).Inc()
	txDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func IncLiveMessage(msgType string) {
	liveMessages.WithLabelValues(msgType).Inc()
}

func SetDanglingTeamRefs(n int) {
	danglingTeamRefs.Set(float64(n))
}

func init() {
	collectors := []prometheus.Collector{
		httpRequests,
		httpDuration,
		poolState,
		poolConnectAttempts,
		txEvents,
		txDuration,
		liveMessages,
		danglingTeamRefs,
	}

	for _, c := range collectors {
		_ = registry.Register(c)
	}
}
