package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/types"
)

// IsSafeMethod reports whether method only reads.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// HasPermission is the request level check: reads are open to everyone,
// writes need an authenticated actor.
func HasPermission(method string, actor *types.Actor) bool {
	return IsSafeMethod(method) || actor.IsAuthenticated()
}

// HasObjectPermission is the check on an existing object owned by authorID:
// reads are open, writes are allowed to superusers and the author.
func HasObjectPermission(method string, actor *types.Actor, authorID uuid.UUID) bool {
	if IsSafeMethod(method) {
		return true
	}
	if !actor.IsAuthenticated() {
		return false
	}
	return actor.IsSuperuser || actor.UserID == authorID
}

// ReadOnlyOrAuthenticated applies HasPermission to every request.
func ReadOnlyOrAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !HasPermission(c.Request.Method, GetActor(c)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		c.Next()
	}
}
