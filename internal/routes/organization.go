package routes

import (
	"net/http"

	"github.com/shakilmiahcse/social-org-finance/internal/contracts"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateOrganization(c *gin.Context) {
	var body contracts.OrganizationCreateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	org, err := h.OrganizationService.CreateOrganization(c.Request.Context(), body.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contracts.OrganizationResponse{
		Message:      "Organization created",
		Organization: org,
	})
}

func (h *Handler) GetOrganization(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	org, err := h.OrganizationService.GetOrganization(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.OrganizationResponse{Organization: org})
}

func (h *Handler) UpdateOrganization(c *gin.Context) {
	var body contracts.OrganizationUpdateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	org, err := h.OrganizationService.UpdateOrganization(c.Request.Context(), scope, body.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.OrganizationResponse{
		Message:      "Organization updated",
		Organization: org,
	})
}
