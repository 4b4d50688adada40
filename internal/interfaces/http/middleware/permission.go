package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// RequireAuth rejects anonymous callers
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetActor(c).IsAnonymous() {
			abortUnauthorized(c, "Authentication required")
			return
		}
		c.Next()
	}
}

// RequireStaff lets Admin, Manager and Sale callers through
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor.IsAnonymous() {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !actor.IsStaff() {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

// RequireAnyRole lets callers holding at least one of roles through
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor.IsAnonymous() {
			abortUnauthorized(c, "Authentication required")
			return
		}
		for _, r := range roles {
			if actor.HasRole(r) {
				c.Next()
				return
			}
		}
		abortForbidden(c)
	}
}

func abortForbidden(c *gin.Context) {
	c.Set(ErrorCodeKey, shared.CodeForbidden)
	c.AbortWithStatusJSON(http.StatusForbidden,
		dto.NewErrorResponseWithRequestID(shared.CodeForbidden, "Access to this resource is forbidden", GetRequestID(c)))
}
