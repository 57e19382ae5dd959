package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cypher_http_requests_total",
			Help: "Total number of HTTP requests processed by the cypher service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cypher_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cypher_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cypher_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cypher_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	messagesPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cypher_messages_purged_total",
			Help: "Total number of self-destructing messages removed by the sweep.",
		},
	)
	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cypher_sweep_duration_seconds",
			Help:    "Duration of cleanup sweep runs in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sweepFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cypher_sweep_conversation_failures_total",
			Help: "Total number of per-conversation purge failures during sweeps.",
		},
	)
	syncOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cypher_sync_ops_total",
			Help: "Total number of sync-store operations applied by the projector.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		messagesPurgedTotal,
		sweepDuration,
		sweepFailuresTotal,
		syncOpsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() { wsActiveConnections.Inc() }

func DecWSActive() { wsActiveConnections.Dec() }

func IncWSEvent(event string) { wsEventsTotal.WithLabelValues(event).Inc() }

func IncAMQPPublishError() { amqpPublishErrorsTotal.Inc() }

func AddMessagesPurged(count int) { messagesPurgedTotal.Add(float64(count)) }

func ObserveSweepDuration(d time.Duration) { sweepDuration.Observe(d.Seconds()) }

func IncSweepFailure() { sweepFailuresTotal.Inc() }

func IncSyncOp(op string) { syncOpsTotal.WithLabelValues(op).Inc() }
