package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"linkinbio-service/internal/models"

	"github.com/gin-gonic/gin"
)

// RateLimiter is implemented by services.RedisService.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware is a no-op when built without a limiter.
type RateLimitMiddleware struct {
	limiter RateLimiter
}

func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// RateLimit limits authenticated callers per user and endpoint
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return rm.limit(requests, window, func(c *gin.Context) string {
		return fmt.Sprintf("rate_limit:%s:%s", UserID(c), c.FullPath())
	})
}

// RateLimitIP limits public routes, such as the websocket upgrade, per client IP
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return rm.limit(requests, window, func(c *gin.Context) string {
		return fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.FullPath())
	})
}

func (rm *RateLimitMiddleware) limit(requests int, window time.Duration, key func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rm.limiter == nil || requests <= 0 {
			c.Next()
			return
		}

		allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key(c), requests, window)
		if err != nil {
			// fail open
			slog.Warn("Rate limit check failed", "path", c.Request.URL.Path, "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    http.StatusTooManyRequests,
				Message: "Rate limit exceeded",
				Details: fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window),
			})
			return
		}

		c.Next()
	}
}
