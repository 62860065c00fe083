package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizsuite/backend/internal/application/access"
	"github.com/bizsuite/backend/internal/domain/identity"
)

// OperationForMethod maps an HTTP method onto the permission vocabulary.
// Unknown methods fall back to read, the least privileged operation.
func OperationForMethod(method string) identity.Operation {
	switch method {
	case http.MethodGet, http.MethodHead:
		return identity.OperationRead
	case http.MethodPost:
		return identity.OperationCreate
	case http.MethodPut, http.MethodPatch:
		return identity.OperationWrite
	case http.MethodDelete:
		return identity.OperationUnlink
	default:
		return identity.OperationRead
	}
}

// RequireModelAccess gates a route group on model-level permission for one
// entity type, deriving the operation from the HTTP method. Denials name
// the entity and operation but never whether any record exists.
func RequireModelAccess(permissions *access.PermissionService, entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		op := OperationForMethod(c.Request.Method)

		if !permissions.CheckModelAccess(c.Request.Context(), principal, entity, op) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Access denied: " + string(op) + " on " + entity,
				},
			})
			return
		}
		c.Next()
	}
}

// RequirePlatformAdmin gates a route on the platform operator flag
func RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetPrincipal(c).IsPlatformAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Platform administrator privileges required",
				},
			})
			return
		}
		c.Next()
	}
}
