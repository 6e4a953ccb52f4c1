package routes

import (
	"net/http"
	"strings"

	"github.com/shakilmiahcse/social-org-finance/internal/contracts"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) CreateFund(c *gin.Context) {
	var body contracts.FundCreateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	created, err := h.FundService.CreateFund(c.Request.Context(), scope, body.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contracts.FundResponse{Message: "Fund created", Fund: created})
}

func (h *Handler) ListFunds(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filters := &fund.Filters{Search: strings.TrimSpace(c.Query("search"))}
	if typ := c.Query("type"); typ != "" {
		t := fund.Types(typ)
		if !t.IsValid() {
			h.respondError(c, appErrors.NewValidationError("type", "must be main or campaign"))
			return
		}
		filters.Type = &t
	}
	if status := c.Query("status"); status != "" {
		s := fund.Status(status)
		if s != fund.StatusOpen && s != fund.StatusClosed {
			h.respondError(c, appErrors.NewValidationError("status", "must be open or closed"))
			return
		}
		filters.Status = &s
	}

	pagination := h.parsePagination(c)
	funds, total, err := h.FundService.ListFunds(c.Request.Context(), scope, filters, pagination)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg.NewPaginatedResponse(funds, pagination, total))
}

func (h *Handler) GetFund(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	found, err := h.FundService.GetFundByID(c.Request.Context(), scope, fundID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.FundResponse{Fund: found})
}

func (h *Handler) GetMainFund(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	main, err := h.FundService.GetMainFund(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.FundResponse{Fund: main})
}

func (h *Handler) UpdateFund(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var body contracts.FundUpdateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.FundService.UpdateFund(c.Request.Context(), scope, fundID, body.ToDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.FundResponse{Message: "Fund updated", Fund: updated})
}

func (h *Handler) CloseFund(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var body contracts.FundCloseRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &body) {
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	closed, err := h.FundService.CloseFund(c.Request.Context(), scope, fundID, body.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.FundResponse{Message: "Fund closed", Fund: closed})
}

func (h *Handler) ReopenFund(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	reopened, err := h.FundService.ReopenFund(c.Request.Context(), scope, fundID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.FundResponse{Message: "Fund reopened", Fund: reopened})
}

func (h *Handler) SetMainFund(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	main, err := h.FundService.SetMainFund(c.Request.Context(), scope, fundID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.FundResponse{Message: "Main fund updated", Fund: main})
}

func (h *Handler) DeleteFund(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.FundService.DeleteFund(c.Request.Context(), scope, fundID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetFundBalance(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	current, err := h.BalanceService.GetBalance(ctx, scope, fundID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	totals, err := h.BalanceService.GetFundTotals(ctx, scope, fundID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.FundBalanceResponse{
		FundId:  fundID.String(),
		Balance: current,
		Totals:  totals,
	})
}

func (h *Handler) GetFundHistory(c *gin.Context) {
	fundID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	history, err := h.BalanceService.GetRunningBalance(c.Request.Context(), scope, fundID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *Handler) ListFundBalances(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	balances, err := h.BalanceService.ListFundBalances(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}

	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Balance)
	}
	c.JSON(http.StatusOK, contracts.FundBalancesResponse{Funds: balances, Total: total})
}
