package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/infrastructure/logger"
	"github.com/bizsuite/backend/internal/infrastructure/sessionctx"
	"github.com/bizsuite/backend/internal/infrastructure/telemetry"
)

// SecurityContext brackets the rest of the request in a session whose
// tenancy variables match the authenticated principal. It must run after
// authentication and before any data access.
//
// When the propagator is enabled the request runs inside one database
// transaction carrying the set_config variables; repositories pick the
// pinned transaction up through sessionctx. When disabled the request
// runs on the shared pool and row isolation falls to the query callbacks.
func SecurityContext(propagator *sessionctx.Propagator, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		tc := principal.TenantContext()

		ctx := c.Request.Context()
		telemetry.AnnotateTenancy(ctx)

		err := propagator.Scoped(ctx, db, tc, func(tx *gorm.DB) error {
			c.Request = c.Request.WithContext(sessionctx.WithDB(ctx, tx))
			c.Next()
			return nil
		})
		if err != nil && !c.Writer.Written() {
			logger.L(ctx).Error("security context propagation failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONTEXT_PROPAGATION_FAILED",
					"message": "Could not establish the request security context",
				},
			})
		}
	}
}
