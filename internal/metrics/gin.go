package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatchedRoute = "unmatched"

var (
	httpLabels = []string{"method", "route", "code"}

	httpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lessin",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "按路由模板统计的请求耗时（秒）。",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		httpLabels,
	)

	httpResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessin",
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "按路由模板与状态码统计的响应数。",
		},
		httpLabels,
	)

	httpUploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lessin",
			Subsystem: "http",
			Name:      "request_body_bytes",
			Help:      "multipart 上传请求体大小。",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"route"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lessin",
			Subsystem: "http",
			Name:      "in_flight_requests",
		},
	)
)

// GinMiddleware 记录请求耗时与状态码。route 取路由模板而非原始路径，
// 未匹配的请求记为 "unmatched"，避免标签基数失控。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		httpInFlight.Dec()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		code := strconv.Itoa(c.Writer.Status())

		httpLatency.WithLabelValues(c.Request.Method, route, code).Observe(time.Since(start).Seconds())
		httpResponses.WithLabelValues(c.Request.Method, route, code).Inc()
		if c.ContentType() == gin.MIMEMultipartPOSTForm && c.Request.ContentLength > 0 {
			httpUploadBytes.WithLabelValues(route).Observe(float64(c.Request.ContentLength))
		}
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
