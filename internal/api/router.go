package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

// NewRouter builds the gin engine with middleware, the health endpoint and
// all detection routes mounted under /api.
func NewRouter(engine *detector.Engine, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	controller := NewController(engine, log)
	controller.RegisterRoutes(router.Group("/api"))
	return router
}

// requestLogger logs one line per request with method, path, status and
// latency.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithField("component", "http")
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		log.Info("%s %s -> %d (%s)",
			ctx.Request.Method,
			ctx.Request.URL.Path,
			ctx.Writer.Status(),
			time.Since(start).Round(time.Microsecond))
	}
}
