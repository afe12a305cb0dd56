package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventpress/eventpress/internal/cache"
	"github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/logger"
	"github.com/eventpress/eventpress/pkg/response"
)

// RateLimit limits requests per (caller, route) within a fixed window using the shared
// cache store, so limits hold across instances. The caller is the authenticated user when
// known, the client IP otherwise. Store failures let the request through.
func RateLimit(store cache.Store, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		caller, ok := CurrentUserID(c)
		if !ok {
			caller = "ip:" + c.ClientIP()
		}
		key := "ratelimit:" + caller + ":" + c.FullPath()

		count, ttl, err := store.IncrementWithTTL(c.Request.Context(), key, window)
		if err != nil {
			logger.WithModule("http").Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-count), 10))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if count > int64(maxRequests) {
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}

		c.Next()
	}
}
