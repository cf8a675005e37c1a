package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_http_requests_total",
			Help: "Total number of HTTP requests processed by the inbox service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inbox_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	realtimeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_realtime_subscriptions",
			Help: "Number of live realtime subscriptions.",
		},
	)
	realtimeDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_realtime_deliveries_total",
			Help: "Realtime message deliveries by outcome.",
		},
		[]string{"outcome"},
	)
	recomputeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_view_recomputations_total",
			Help: "Derived view recomputations by view and outcome.",
		},
		[]string{"view", "outcome"},
	)
	rejectedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_rejected_messages_total",
			Help: "Messages rejected as malformed while deriving views.",
		},
		[]string{"view"},
	)
	markedReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_messages_marked_read_total",
			Help: "Messages transitioned to read.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		realtimeSubscriptions,
		realtimeDeliveriesTotal,
		recomputeTotal,
		rejectedMessagesTotal,
		markedReadTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncRealtimeSubscriptions() {
	realtimeSubscriptions.Inc()
}

func DecRealtimeSubscriptions() {
	realtimeSubscriptions.Dec()
}

func IncRealtimeDelivery(outcome string) {
	realtimeDeliveriesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecompute counts one derived view rebuild. Stale results are ones
// discarded because a newer snapshot was already published.
func ObserveRecompute(view, outcome string) {
	recomputeTotal.WithLabelValues(view, outcome).Inc()
}

func AddRejectedMessages(view string, n int) {
	if n > 0 {
		rejectedMessagesTotal.WithLabelValues(view).Add(float64(n))
	}
}

func AddMarkedRead(n int64) {
	if n > 0 {
		markedReadTotal.Add(float64(n))
	}
}
