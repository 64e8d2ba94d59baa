package middleware

import (
	"context"
	"strings"

	"whatsapp-intake/backend/pkg/errors"
	"whatsapp-intake/backend/pkg/jwt"
	"whatsapp-intake/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireScope returns a middleware that requires the consumer token to carry a scope
func RequireScope(scope jwt.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
			c.Abort()
			return
		}

		jwtClaims, ok := claims.(*jwt.Claims)
		if !ok {
			c.Error(errors.NewInternalServerError("INVALID_CLAIMS", "Invalid JWT claims format"))
			c.Abort()
			return
		}

		if !jwtClaims.HasScope(scope) {
			c.Error(errors.NewForbiddenError("INSUFFICIENT_SCOPE", "Your token does not allow this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context
func JWTAuthMiddleware(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}

	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", "error", err.Error())
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), ConsumerKey, claims.Consumer)
		c.Request = c.Request.WithContext(ctx)
		c.Set("claims", claims)
		c.Set("consumer", claims.Consumer)

		c.Next()
	}
}
