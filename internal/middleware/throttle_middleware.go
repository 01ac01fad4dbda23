package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/callable"
	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/ratelimit"
)

// Throttle limits how often one uid may call the routes it guards. It is
// separate from the AI quota: throttled requests never reach the quota ledger.
// Unauthenticated requests pass through and are rejected by the handler.
func Throttle(limiter ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := callable.CallerOf(c).UID
		if uid == "" {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), uid)
		if err != nil {
			// Limiter errors fail open.
			logger.Warn("Rate limiter unavailable, allowing request", zap.String("user_id", uid), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			retry := int(math.Ceil(res.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			logger.Info("Request throttled", zap.String("user_id", uid), zap.String("path", c.FullPath()))
			callable.Fail(c, core.NewError(codes.ResourceExhausted, "Too many requests, please try again later").
				WithDetails(map[string]interface{}{"retryAfterSeconds": retry}))
			return
		}
		c.Next()
	}
}
