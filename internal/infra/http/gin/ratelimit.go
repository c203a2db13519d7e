package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"rentbox/internal/infra/redis"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (redis.Decision, error)
}

// RateLimit throttles per client IP within scope. Limiter failures let the request through.
func RateLimit(l Limiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		d, err := l.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			if logger != nil {
				logger.Warn("rate limiter unavailable", "scope", scope, "error", err)
			}
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if !d.Allowed {
			c.Header("Retry-After", d.RetryAfterSeconds())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
