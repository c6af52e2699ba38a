package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"
	"thirdplace-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// Context keys
	CtxAdminID  = "admin_id"
	CtxUsername = "username"
)

// JWTAuth creates a middleware that validates JWT tokens for admin routes.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		tokenStr := authHeader[7:]
		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxAdminID, claims.AdminID)
		c.Set(CtxUsername, claims.Username)
		c.Next()
	}
}

// TriggerAuth creates a middleware that guards the /internal endpoints with
// a static bearer token shared with the scheduler and the application
// backend. An empty configured token disables the endpoints entirely.
func TriggerAuth(token string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Error(c, apperror.ErrInvalidTriggerToken())
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidTriggerToken())
			c.Abort()
			return
		}
		presented := authHeader[7:]

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			log.Warn().Str("client_ip", c.ClientIP()).Msg("invalid trigger token")
			response.Error(c, apperror.ErrInvalidTriggerToken())
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and the
// request is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
