package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatterbox_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatterbox_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatterbox_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatterbox_ws_events_total",
			Help: "Total number of websocket events by type.",
		},
		[]string{"event"},
	)
	chatListSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatterbox_chat_list_subscriptions",
			Help: "Number of open chat list subscriptions.",
		},
	)
	chatListRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatterbox_chat_list_rebuild_duration_seconds",
			Help:    "Time spent rebuilding a chat summary list.",
			Buckets: prometheus.DefBuckets,
		},
	)
	chatListExcludedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatterbox_chat_list_excluded_chats_total",
			Help: "Chats left out of a summary list because they failed to load.",
		},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatterbox_messages_sent_total",
			Help: "Message sends by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		chatListSubscriptions,
		chatListRebuildDuration,
		chatListExcludedTotal,
		messagesSentTotal,
	)
}

// Middleware records request counts and latencies per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status

			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the Prometheus exposition format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncSubscriptions() {
	chatListSubscriptions.Inc()
}

func DecSubscriptions() {
	chatListSubscriptions.Dec()
}

func ObserveRebuild(d time.Duration) {
	chatListRebuildDuration.Observe(d.Seconds())
}

func IncExcludedChat() {
	chatListExcludedTotal.Inc()
}

func IncMessageSent(outcome string) {
	messagesSentTotal.WithLabelValues(outcome).Inc()
}
