package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ledgerOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_ledger_operations_total",
			Help: "Ledger operations applied, by kind.",
		},
		[]string{"kind"},
	)

	ledgerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_ledger_failures_total",
			Help: "Rejected or failed ledger writes, by error code.",
		},
		[]string{"code"},
	)

	historyCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensation_history_cache_total",
			Help: "Salary history cache lookups, by result.",
		},
		[]string{"result"},
	)

	outboxPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_publish_total",
			Help: "Outbox events relayed to kafka, by status.",
		},
		[]string{"status"},
	)
)

var initOnce sync.Once

// Init registers every collector in the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			ledgerOperationsTotal,
			ledgerFailuresTotal,
			historyCacheTotal,
			outboxPublishTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count, latency and in-flight requests. The
// route template is used as the path label to keep cardinality bounded.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpInFlight.Dec()
	}
}

func LedgerOperation(kind string) {
	ledgerOperationsTotal.WithLabelValues(kind).Inc()
}

func LedgerFailure(code string) {
	ledgerFailuresTotal.WithLabelValues(code).Inc()
}

func HistoryCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	historyCacheTotal.WithLabelValues(result).Inc()
}

func OutboxPublish(status string) {
	outboxPublishTotal.WithLabelValues(status).Inc()
}
