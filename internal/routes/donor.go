package routes

import (
	"net/http"
	"strings"

	"github.com/shakilmiahcse/social-org-finance/internal/contracts"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateDonor(c *gin.Context) {
	var body contracts.DonorCreateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	created, err := h.DonorService.CreateDonor(c.Request.Context(), scope, body.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contracts.DonorResponse{Message: "Donor created", Donor: created})
}

func (h *Handler) ListDonors(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filters := &donor.Filters{
		Search:     strings.TrimSpace(c.Query("search")),
		BloodGroup: strings.ToUpper(strings.TrimSpace(c.Query("blood_group"))),
	}
	pagination := h.parsePagination(c)

	donors, total, err := h.DonorService.ListDonors(c.Request.Context(), scope, filters, pagination)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg.NewPaginatedResponse(donors, pagination, total))
}

func (h *Handler) GetDonor(c *gin.Context) {
	donorID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	found, err := h.DonorService.GetDonorByID(c.Request.Context(), scope, donorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.DonorResponse{Donor: found})
}

func (h *Handler) UpdateDonor(c *gin.Context) {
	donorID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var body contracts.DonorUpdateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.DonorService.UpdateDonor(c.Request.Context(), scope, donorID, body.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.DonorResponse{Message: "Donor updated", Donor: updated})
}

func (h *Handler) DeleteDonor(c *gin.Context) {
	donorID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.DonorService.DeleteDonor(c.Request.Context(), scope, donorID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListDonorTransactions(c *gin.Context) {
	donorID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	pagination := h.parsePagination(c)
	entries, total, err := h.TransactionService.ListByDonor(c.Request.Context(), scope, donorID, nil, pagination)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg.NewPaginatedResponse(entries, pagination, total))
}
