package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/callable"
	"qanta-backend-go/internal/core"
)

// RecoveryMiddleware recovers from panics in handlers, logs the panic with its
// stack trace and answers a callable INTERNAL error.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		panic("RecoveryMiddleware requires a non-nil zap.Logger instance")
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stacktrace", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)

				// A handler that already wrote its response cannot be answered twice.
				if c.Writer.Written() {
					c.Abort()
					return
				}
				callable.Fail(c, core.NewError(codes.Internal, "The server encountered an unexpected condition"))
			}
		}()

		c.Next()
	}
}
