package web

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/fsandov/klipper-gotify/pkg/config"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func (app *GinApp) setupMiddleware() {
	app.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody(http.StatusNotFound, "route not found"))
	})
	app.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorBody(http.StatusMethodNotAllowed, "method not allowed"))
	})

	if app.ginConfig.EnableRequestID {
		app.engine.Use(RequestIDMiddleware())
	}
	if app.ginConfig.EnableRecovery {
		app.engine.Use(gin.Recovery())
	}
	if app.ginConfig.EnableCORS {
		app.engine.Use(cors.Default())
	}
	if app.ginConfig.EnableCompression {
		app.engine.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	if app.ginConfig.EnableTracing {
		app.engine.Use(otelgin.Middleware(config.Get().AppName))
	}
	app.engine.Use(SecureHeadersMiddleware())
	app.engine.Use(AccessLogMiddleware(app.logger))
	if app.ginConfig.APIKey != "" {
		app.engine.Use(APIKeyMiddleware(app.ginConfig.APIKey))
	}
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

func SecureHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Next()
	}
}

// APIKeyMiddleware rejects requests without the expected X-Api-Key. /health stays open.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(http.StatusUnauthorized, "Unauthorized"))
			return
		}
		c.Next()
	}
}

func AccessLogMiddleware(logger *logs.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
