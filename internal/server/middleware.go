package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bazaar/internal/httpx"
	"bazaar/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BearerAuthMiddleware validates the Authorization header and injects the
// resolved identity into the request context. Protected routes fail closed:
// absent, malformed, or revoked tokens all get 401.
func BearerAuthMiddleware(tokens token.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpx.ErrorResponse{
				Error: "unauthenticated: missing bearer token",
			})
			return
		}

		rawToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || rawToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpx.ErrorResponse{
				Error: "unauthenticated: malformed authorization header",
			})
			return
		}

		identity, err := tokens.Validate(c.Request.Context(), rawToken)
		if err != nil {
			slog.Warn("Rejected bearer token",
				"error", err.Error(),
				"request_id", c.GetString("request_id"),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpx.ErrorResponse{
				Error: "unauthenticated: invalid token",
			})
			return
		}

		c.Set(httpx.ContextUserID, identity.UserID)
		c.Set(httpx.ContextIdentity, identity)
		c.Set(httpx.ContextToken, rawToken)

		c.Next()
	}
}

// RequestIDMiddleware assigns a unique id to every request for log correlation
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs every request with structured attributes, choosing
// the level from the response status class.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", float64(time.Since(start).Milliseconds()),
			"client_ip", c.ClientIP(),
			"response_size", c.Writer.Size(),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}
		if userID, exists := c.Get(httpx.ContextUserID); exists {
			attrs = append(attrs, "user_id", userID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.Error("Request failed - server error", attrs...)
		case status >= 400:
			slog.Warn("Request failed - client error", attrs...)
		default:
			slog.Info("Request completed", attrs...)
		}
	}
}
