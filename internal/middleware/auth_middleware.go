package middleware

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/callable"
	"qanta-backend-go/internal/core"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthMiddleware turns the bearer ID token of a request into a core.Caller.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware panics if verifier is nil, since no route can work without it.
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	if verifier == nil {
		panic("Firebase token verifier is not initialized for AuthMiddleware")
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// VerifyToken follows the callable contract: a request without an
// Authorization header runs unauthenticated and each operation decides how to
// reject it, while a header that does not carry a valid token is refused here.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			callable.Fail(c, core.NewError(codes.Unauthenticated, "Authorization header format must be 'Bearer {token}'"))
			return
		}

		token, err := m.verifier.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			m.logger.Warn("Error verifying Firebase ID token", zap.Error(err), zap.String("client_ip", c.ClientIP()))
			callable.Fail(c, core.NewError(codes.Unauthenticated, "Invalid or expired authentication token"))
			return
		}

		callable.SetCaller(c, callerFromToken(token))
		c.Next()
	}
}

func callerFromToken(token *auth.Token) core.Caller {
	caller := core.Caller{UID: token.UID, Claims: token.Claims}
	if email, ok := token.Claims["email"].(string); ok {
		caller.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		caller.Name = name
	}
	return caller
}
