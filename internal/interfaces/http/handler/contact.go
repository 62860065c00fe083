package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bizsuite/backend/internal/application/access"
	appcontact "github.com/bizsuite/backend/internal/application/contact"
	"github.com/bizsuite/backend/internal/domain/contacts"
	"github.com/bizsuite/backend/internal/interfaces/http/dto"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
)

// ContactHandler exposes the contacts module over HTTP
type ContactHandler struct {
	BaseHandler
	service     *appcontact.ContactService
	permissions *access.PermissionService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service *appcontact.ContactService, permissions *access.PermissionService) *ContactHandler {
	return &ContactHandler{service: service, permissions: permissions}
}

// RegisterRoutes registers contact routes
func (h *ContactHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/contacts", middleware.RequireModelAccess(h.permissions, contacts.EntityContact))
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// List handles GET /contacts. The scope parameter names either a native
// or an extension-contributed query scope; include drives projection.
func (h *ContactHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid list parameters: "+err.Error())
		return
	}
	req.Normalize()

	result, total, err := h.service.List(c.Request.Context(), appcontact.ListQuery{
		Scope:    req.Scope,
		Search:   req.Search,
		Includes: parseIncludes(req.Include),
		Strict:   req.Strict,
		Limit:    req.PageSize,
		Offset:   (req.Page - 1) * req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result, total, req.Page, req.PageSize)
}

// Get handles GET /contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	includes := parseIncludes(c.Query("include"))
	strict := c.Query("strict") == "true"

	result, err := h.service.Get(c.Request.Context(), id, includes, strict)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Create handles POST /contacts
func (h *ContactHandler) Create(c *gin.Context) {
	var input appcontact.CreateContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Update handles PUT /contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	var input appcontact.UpdateContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Update(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Delete handles DELETE /contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	id, ok := h.contactID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ContactHandler) contactID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid contact id")
		return uuid.Nil, false
	}
	return id, true
}

// parseIncludes splits the comma-separated include parameter
func parseIncludes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	includes := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			includes = append(includes, trimmed)
		}
	}
	return includes
}
