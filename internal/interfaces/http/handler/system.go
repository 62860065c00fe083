package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizsuite/backend/internal/domain/extension"
	"github.com/bizsuite/backend/internal/infrastructure/persistence"
	"github.com/bizsuite/backend/internal/infrastructure/sessionctx"
)

// SystemHandler exposes health and readiness endpoints
type SystemHandler struct {
	BaseHandler
	db         *persistence.Database
	registry   *extension.Registry
	propagator *sessionctx.Propagator
	version    string
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *persistence.Database, registry *extension.Registry, propagator *sessionctx.Propagator, version string) *SystemHandler {
	return &SystemHandler{db: db, registry: registry, propagator: propagator, version: version}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// RegisterRootRoutes registers the unversioned probe endpoints
func (h *SystemHandler) RegisterRootRoutes(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
}

// Health handles GET /health. The teardown failure counter is surfaced
// so a propagation problem is observable even though it never fails a
// completed request.
func (h *SystemHandler) Health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "up"
	if err := h.db.Ping(); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "down"
	}

	c.JSON(status, gin.H{
		"status":   statusWord(status),
		"version":  h.version,
		"database": dbStatus,
		"registry": gin.H{
			"built":   h.registry.Built(),
			"version": h.registry.Version(),
		},
		"security_context": gin.H{
			"row_policy_enabled": h.propagator.Enabled(),
			"teardown_failures":  h.propagator.TeardownFailures(),
		},
	})
}

// Ready handles GET /ready. The process is not ready until the extension
// registry has published a valid index.
func (h *SystemHandler) Ready(c *gin.Context) {
	if !h.registry.Built() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "registry not built"})
		return
	}
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}
