package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bizsuite/backend/internal/application/extensions"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
)

// ExtensionHandler exposes the extension registry catalogue and the
// administrative rebuild operation
type ExtensionHandler struct {
	BaseHandler
	service *extensions.RegistryService
}

// NewExtensionHandler creates a new ExtensionHandler
func NewExtensionHandler(service *extensions.RegistryService) *ExtensionHandler {
	return &ExtensionHandler{service: service}
}

// RegisterRoutes registers extension routes
func (h *ExtensionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/extensions", h.Targets)
	rg.GET("/extensions/:module/:entity", h.Catalogue)
	rg.POST("/admin/registry/rebuild", middleware.RequirePlatformAdmin(), h.Rebuild)
}

// Targets handles GET /extensions
func (h *ExtensionHandler) Targets(c *gin.Context) {
	h.Success(c, gin.H{
		"targets": h.service.Targets(),
		"version": h.service.Version(),
	})
}

// Catalogue handles GET /extensions/:module/:entity. It lists what every
// registered extension contributes to the target so the owning module can
// learn what was grafted onto it.
func (h *ExtensionHandler) Catalogue(c *gin.Context) {
	catalogue, err := h.service.Catalogue(c.Param("module"), c.Param("entity"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, catalogue)
}

// Rebuild handles POST /admin/registry/rebuild. Platform admin only.
func (h *ExtensionHandler) Rebuild(c *gin.Context) {
	version, err := h.service.Rebuild(c.Request.Context(), c.Query("module"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"version": version})
}
