package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"lessin/internal/api/middleware"
	"lessin/internal/config"
	"lessin/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎并挂载全局中间件、健康检查与指标端点。
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Otel.Enabled {
		router.Use(otelgin.Middleware(cfg.Otel.ServiceName))
	}
	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
		middleware.CORS(cfg.API.CORSOrigins),
		middleware.RequestTimeout(cfg.API.RequestTimeout),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	return router
}
