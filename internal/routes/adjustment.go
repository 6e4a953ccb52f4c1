package routes

import (
	"net/http"

	"github.com/shakilmiahcse/social-org-finance/internal/contracts"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateAdjustment(c *gin.Context) {
	var body contracts.AdjustmentCreateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	mainFundID, err := pkg.ParseULID(body.MainFundId)
	if err != nil {
		h.respondError(c, appErrors.NewValidationError("main_fund_id", "has an invalid format"))
		return
	}
	campaignFundID, err := pkg.ParseULID(body.CampaignFundId)
	if err != nil {
		h.respondError(c, appErrors.NewValidationError("campaign_fund_id", "has an invalid format"))
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	created, err := h.AdjustmentService.CreateAdjustment(c.Request.Context(), scope, &adjustment.CreateAdjustmentRequest{
		MainFundId:     mainFundID,
		CampaignFundId: campaignFundID,
		Amount:         body.Amount,
		Type:           adjustment.Types(body.Type),
		Note:           body.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contracts.AdjustmentResponse{
		Message:    "Adjustment recorded",
		Adjustment: created,
	})
}

func (h *Handler) ListAdjustments(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filters := &adjustment.Filters{}
	if filters.FundId, err = h.parseOptionalID(c.Query("fund_id"), "fund_id"); err != nil {
		h.respondError(c, err)
		return
	}
	if typ := c.Query("type"); typ != "" {
		t := adjustment.Types(typ)
		if !t.IsValid() {
			h.respondError(c, appErrors.NewValidationError("type", "must be to_campaign or to_main"))
			return
		}
		filters.Type = &t
	}

	pagination := h.parsePagination(c)
	adjustments, total, err := h.AdjustmentService.ListAdjustments(c.Request.Context(), scope, filters, pagination)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg.NewPaginatedResponse(adjustments, pagination, total))
}

func (h *Handler) GetAdjustment(c *gin.Context) {
	adjustmentID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	found, err := h.AdjustmentService.GetAdjustment(c.Request.Context(), scope, adjustmentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.AdjustmentResponse{Adjustment: found})
}

func (h *Handler) DeleteAdjustment(c *gin.Context) {
	adjustmentID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.AdjustmentService.DeleteAdjustment(c.Request.Context(), scope, adjustmentID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
