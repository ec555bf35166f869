package api

import (
	"net/http"
	"strconv"
	"time"

	"pos-terminal/internal/service"
	"pos-terminal/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const staffHeader = "X-Staff-ID"

// staffMiddleware attaches the signed-in staff member to the request context
func staffMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(staffHeader)
		if raw == "" {
			c.Next()
			return
		}

		staffID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || staffID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Invalid " + staffHeader + " header",
			})
			return
		}

		c.Request = c.Request.WithContext(service.WithStaffID(c.Request.Context(), staffID))
		c.Next()
	}
}

// requestLogger logs each request through zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
