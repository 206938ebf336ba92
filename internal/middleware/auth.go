package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	actorKey    = "actor"
	userIDKey   = "user_id"
	usernameKey = "username"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// Authenticator validates a token and resolves the user it names.
type Authenticator interface {
	TokenValidator
	LookupActor(ctx context.Context, claims *types.TokenClaims) (*types.Actor, error)
}

// Authenticate resolves the caller from the Authorization header. Requests
// without the header continue as anonymous; a malformed or rejected token
// ends the request with 401.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || token == "" || (scheme != "Bearer" && scheme != "Token") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			logger.FromGin(c).Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		actor, err := auth.LookupActor(c.Request.Context(), claims)
		if err != nil {
			logger.FromGin(c).Debug("token user rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		// Store user info in context
		c.Set(actorKey, actor)
		c.Set(userIDKey, actor.UserID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetActor(c).IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		c.Next()
	}
}

// GetActor returns the authenticated caller, or nil for anonymous requests.
func GetActor(c *gin.Context) *types.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(*types.Actor); ok {
			return actor
		}
	}
	return nil
}
