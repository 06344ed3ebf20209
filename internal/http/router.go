// Package httpapi hosts the internal ops HTTP server. It is not a public
// API: the storefront lives entirely on Telegram, and this surface exists
// for orchestration (liveness, readiness against the database) and for
// Prometheus scrapes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/vl-kp/gamekey-bot/internal/config"
)

// NewRouter builds the ops engine: tracing, access logs, panic recovery,
// health and metrics endpoints.
func NewRouter(db *gorm.DB, cfg config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	r := gin.New()

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(accessLog())
	r.Use(gin.Recovery())

	r.GET("/healthz", healthz(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return r
}

// healthz reports liveness and pings the database so a wedged SQLite file
// flips readiness instead of failing silently at the next order.
func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// accessLog emits one structured line per request.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("ops request")
	}
}
