package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkfold/printq/internal/api/handlers"
	"github.com/inkfold/printq/internal/api/middleware"
)

// NewRouter wires the HTTP surface: health and auth stay open, the queue
// API sits behind RequireAuth when credentials are configured.
func NewRouter(logger *slog.Logger, auth *middleware.AuthMiddleware, queueHandler *handlers.QueueHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "printq",
		})
	})

	r.POST("/api/auth/login", auth.LoginHandler)
	r.POST("/api/auth/logout", auth.LogoutHandler)
	r.GET("/api/auth/status", auth.StatusHandler)

	api := r.Group("/api")
	api.Use(auth.RequireAuth())
	queueHandler.RegisterRoutes(api)

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("http request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
