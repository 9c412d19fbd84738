package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amiyamandal-dev/podsync/pkg/logger"
)

// LoggerMiddleware creates request logging middleware
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")

	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(startTime).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if principal := GetPrincipal(c); principal != "" {
			fields = append(fields, "principal", principal)
		}

		// Health probes are frequent and uninteresting
		if c.FullPath() == "/health/live" {
			log.Debug("HTTP Request", fields...)
		} else {
			log.Info("HTTP Request", fields...)
		}

		if len(c.Errors) > 0 {
			log.Error("Request errors", "errors", c.Errors.String())
		}
	}
}
