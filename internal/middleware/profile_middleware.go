package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qanta-backend-go/internal/cache"
	"qanta-backend-go/internal/callable"
	"qanta-backend-go/internal/core"
)

const profileCheckTTL = 6 * time.Hour

// EnsureProfile creates or completes the users/{uid} profile on the first
// authenticated request of a user, so clients that never call
// ensureUserProfile still get one. Each uid is checked at most once per
// profileCheckTTL; failures are logged and the request continues.
func EnsureProfile(users core.UserService, c cache.Cache, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		caller := callable.CallerOf(ctx)
		if !caller.Authenticated() {
			ctx.Next()
			return
		}

		key := "profile:checked:" + caller.UID
		if _, err := c.Get(ctx.Request.Context(), key); err == nil {
			ctx.Next()
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("Profile cache read failed", zap.String("user_id", caller.UID), zap.Error(err))
		}

		if _, err := users.EnsureProfile(ctx.Request.Context(), caller); err != nil {
			logger.Warn("Failed to ensure user profile", zap.String("user_id", caller.UID), zap.Error(err))
			ctx.Next()
			return
		}
		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), 2*time.Second)
		defer cancel()
		if err := c.Set(setCtx, key, "1", profileCheckTTL); err != nil {
			logger.Warn("Profile cache write failed", zap.String("user_id", caller.UID), zap.Error(err))
		}
		ctx.Next()
	}
}
