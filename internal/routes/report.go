package routes

import (
	"net/http"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/contracts"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
)

func (h *Handler) parseRange(c *gin.Context) (from, to time.Time, err error) {
	fromPtr, err := h.parseDate(c.Query("from"), "from", false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	toPtr, err := h.parseDate(c.Query("to"), "to", true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if fromPtr != nil {
		from = *fromPtr
	}
	if toPtr != nil {
		to = *toPtr
	}
	return from, to, nil
}

func (h *Handler) GetSummary(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	from, to, err := h.parseRange(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	fundID, err := h.parseOptionalID(c.Query("fund_id"), "fund_id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary, err := h.BalanceService.Summarize(c.Request.Context(), scope, balance.SummaryQuery{
		From:               from,
		To:                 to,
		FundId:             fundID,
		ExcludeAdjustments: c.Query("exclude_adjustments") == "true",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.SummaryResponse{Summary: summary})
}

func (h *Handler) GetTopDonors(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	from, to, err := h.parseRange(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	limit, err := pkg.ParseInt(c.DefaultQuery("limit", "0"))
	if err != nil {
		limit = 0
	}

	donors, err := h.BalanceService.TopDonors(c.Request.Context(), scope, from, to, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.TopDonorsResponse{Donors: donors})
}

func (h *Handler) GetMonthlyComparison(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	comparison, err := h.BalanceService.MonthlyComparison(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.MonthlyComparisonResponse{Comparison: comparison})
}

func (h *Handler) GetDonationDistribution(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	from, to, err := h.parseRange(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	buckets, err := h.BalanceService.DonationDistribution(c.Request.Context(), scope, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.DonationDistributionResponse{Distribution: buckets})
}
