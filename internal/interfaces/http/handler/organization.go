package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bizsuite/backend/internal/application/tenancy"
	"github.com/bizsuite/backend/internal/interfaces/http/middleware"
)

// OrganizationHandler exposes organization administration. Platform admin
// only: organizations are the tenancy boundary itself.
type OrganizationHandler struct {
	BaseHandler
	service *tenancy.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(service *tenancy.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// RegisterRoutes registers organization routes
func (h *OrganizationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/admin/organizations", middleware.RequirePlatformAdmin())
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.PUT("/:id/partner", h.AssignPartner)
	group.DELETE("/:id/partner", h.ReleasePartner)
	group.PUT("/:id/active", h.SetActive)
}

type assignPartnerRequest struct {
	PartnerID int64 `json:"partnerId" binding:"required,gt=0"`
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// List handles GET /admin/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orgs)
}

// Create handles POST /admin/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var input tenancy.CreateOrganizationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	org, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, org)
}

// Get handles GET /admin/organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, ok := h.organizationID(c)
	if !ok {
		return
	}

	org, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

// AssignPartner handles PUT /admin/organizations/:id/partner. The partner
// gains visibility of the organization's rows on their next query.
func (h *OrganizationHandler) AssignPartner(c *gin.Context) {
	id, ok := h.organizationID(c)
	if !ok {
		return
	}

	var req assignPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	org, err := h.service.AssignPartner(c.Request.Context(), id, req.PartnerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

// ReleasePartner handles DELETE /admin/organizations/:id/partner
func (h *OrganizationHandler) ReleasePartner(c *gin.Context) {
	id, ok := h.organizationID(c)
	if !ok {
		return
	}

	org, err := h.service.ReleasePartner(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

// SetActive handles PUT /admin/organizations/:id/active
func (h *OrganizationHandler) SetActive(c *gin.Context) {
	id, ok := h.organizationID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	org, err := h.service.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, org)
}

func (h *OrganizationHandler) organizationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.BadRequest(c, "Invalid organization id")
		return 0, false
	}
	return id, true
}
