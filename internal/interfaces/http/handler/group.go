package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bizsuite/backend/internal/application/access"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
)

// GroupHandler exposes permission group administration. All routes are
// platform admin only: groups define the access model itself.
type GroupHandler struct {
	BaseHandler
	service *access.GroupService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(service *access.GroupService) *GroupHandler {
	return &GroupHandler{service: service}
}

// RegisterRoutes registers group routes
func (h *GroupHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/admin/groups", middleware.RequirePlatformAdmin())
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.DELETE("/:id", h.Delete)
	group.POST("/:id/grants", h.AddGrant)
	group.DELETE("/:id/grants", h.RemoveGrant)
	group.PUT("/:id/enabled", h.SetEnabled)
}

type createGroupRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type grantRequest struct {
	Entity    string `json:"entity" binding:"required"`
	Operation string `json:"operation" binding:"required"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// List handles GET /admin/groups
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, groups)
}

// Create handles POST /admin/groups
func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	group, err := h.service.Create(c.Request.Context(), access.CreateGroupInput{
		Code: req.Code,
		Name: req.Name,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, group)
}

// Get handles GET /admin/groups/:id
func (h *GroupHandler) Get(c *gin.Context) {
	id, ok := h.groupID(c)
	if !ok {
		return
	}

	group, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, group)
}

// Delete handles DELETE /admin/groups/:id
func (h *GroupHandler) Delete(c *gin.Context) {
	id, ok := h.groupID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddGrant handles POST /admin/groups/:id/grants
func (h *GroupHandler) AddGrant(c *gin.Context) {
	h.mutateGrant(c, h.service.AddGrant)
}

// RemoveGrant handles DELETE /admin/groups/:id/grants
func (h *GroupHandler) RemoveGrant(c *gin.Context) {
	h.mutateGrant(c, h.service.RemoveGrant)
}

// SetEnabled handles PUT /admin/groups/:id/enabled
func (h *GroupHandler) SetEnabled(c *gin.Context) {
	id, ok := h.groupID(c)
	if !ok {
		return
	}

	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	group, err := h.service.SetEnabled(c.Request.Context(), id, *req.Enabled)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, group)
}

func (h *GroupHandler) mutateGrant(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, input access.GrantInput) (*access.GroupDTO, error)) {
	id, ok := h.groupID(c)
	if !ok {
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	group, err := fn(c.Request.Context(), id, access.GrantInput{
		Entity:    req.Entity,
		Operation: req.Operation,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, group)
}

func (h *GroupHandler) groupID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid group id")
		return uuid.Nil, false
	}
	return id, true
}
