package routes

import (
	"net/http"
	"strings"

	"github.com/shakilmiahcse/social-org-finance/internal/contracts"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
)

func (h *Handler) toCreateTransaction(body *contracts.TransactionCreateRequest) (*transaction.CreateTransactionRequest, error) {
	fundID, err := pkg.ParseULID(body.FundId)
	if err != nil {
		return nil, appErrors.NewValidationError("fund_id", "has an invalid format")
	}
	donorID, err := h.parseOptionalID(derefString(body.DonorId), "donor_id")
	if err != nil {
		return nil, err
	}
	return &transaction.CreateTransactionRequest{
		FundId:        fundID,
		DonorId:       donorID,
		Amount:        body.Amount,
		Type:          transaction.Types(body.Type),
		PaymentMethod: transaction.PaymentMethod(body.PaymentMethod),
		Purpose:       body.Purpose,
		Reference:     body.Reference,
		Note:          body.Note,
		Status:        transaction.Status(body.Status),
	}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) createTransaction(c *gin.Context, create func(*gin.Context, *transaction.CreateTransactionRequest) (*transaction.Transaction, error)) {
	var body contracts.TransactionCreateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	req, err := h.toCreateTransaction(&body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	created, err := create(c, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contracts.TransactionResponse{
		Message:     "Transaction recorded",
		Transaction: created,
	})
}

func (h *Handler) CreateTransaction(c *gin.Context) {
	h.createTransaction(c, func(c *gin.Context, req *transaction.CreateTransactionRequest) (*transaction.Transaction, error) {
		scope, err := h.scope(c)
		if err != nil {
			return nil, err
		}
		if req.Type == "" {
			return nil, appErrors.NewValidationError("type", "is required")
		}
		return h.TransactionService.CreateTransaction(c.Request.Context(), scope, req)
	})
}

func (h *Handler) CreateIncome(c *gin.Context) {
	h.createTransaction(c, func(c *gin.Context, req *transaction.CreateTransactionRequest) (*transaction.Transaction, error) {
		scope, err := h.scope(c)
		if err != nil {
			return nil, err
		}
		return h.TransactionService.CreateIncome(c.Request.Context(), scope, req)
	})
}

func (h *Handler) CreateExpense(c *gin.Context) {
	h.createTransaction(c, func(c *gin.Context, req *transaction.CreateTransactionRequest) (*transaction.Transaction, error) {
		scope, err := h.scope(c)
		if err != nil {
			return nil, err
		}
		return h.TransactionService.CreateExpense(c.Request.Context(), scope, req)
	})
}

func (h *Handler) parseTransactionFilters(c *gin.Context) (*transaction.Filters, error) {
	filters := &transaction.Filters{}
	var err error

	if filters.FundId, err = h.parseOptionalID(c.Query("fund_id"), "fund_id"); err != nil {
		return nil, err
	}
	if filters.DonorId, err = h.parseOptionalID(c.Query("donor_id"), "donor_id"); err != nil {
		return nil, err
	}
	if filters.AdjustmentId, err = h.parseOptionalID(c.Query("adjustment_id"), "adjustment_id"); err != nil {
		return nil, err
	}
	if filters.DateFrom, err = h.parseDate(c.Query("date_from"), "date_from", false); err != nil {
		return nil, err
	}
	if filters.DateTo, err = h.parseDate(c.Query("date_to"), "date_to", true); err != nil {
		return nil, err
	}
	for _, t := range splitList(c.Query("type")) {
		filters.Types = append(filters.Types, transaction.Types(t))
	}
	for _, s := range splitList(c.Query("status")) {
		filters.Statuses = append(filters.Statuses, transaction.Status(s))
	}
	if method := c.Query("payment_method"); method != "" {
		m := transaction.PaymentMethod(method)
		filters.PaymentMethod = &m
	}
	return filters, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handler) ListTransactions(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filters, err := h.parseTransactionFilters(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	pagination := h.parsePagination(c)
	entries, total, err := h.TransactionService.ListTransactions(c.Request.Context(), scope, filters, pagination)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg.NewPaginatedResponse(entries, pagination, total))
}

func (h *Handler) GetTransaction(c *gin.Context) {
	transactionID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	found, err := h.TransactionService.GetTransactionByID(c.Request.Context(), scope, transactionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.TransactionResponse{Transaction: found})
}

func (h *Handler) GetTransactionByTxnID(c *gin.Context) {
	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	found, err := h.TransactionService.GetTransactionByTxnID(c.Request.Context(), scope, c.Param("txn_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.TransactionResponse{Transaction: found})
}

func (h *Handler) GetReceipt(c *gin.Context) {
	transactionID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	receipt, err := h.TransactionService.GetReceipt(c.Request.Context(), scope, transactionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.ReceiptResponse{Receipt: receipt})
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	transactionID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var body contracts.TransactionUpdateRequest
	if !h.bindJSON(c, &body) {
		return
	}

	req := &transaction.UpdateTransactionRequest{
		ClearDonor: body.ClearDonor,
		Purpose:    body.Purpose,
		Reference:  body.Reference,
		Note:       body.Note,
	}
	if body.Amount != nil {
		req.Amount = body.Amount
	}
	if body.FundId != nil {
		if req.FundId, err = h.parseOptionalID(*body.FundId, "fund_id"); err != nil {
			h.respondError(c, err)
			return
		}
	}
	if body.DonorId != nil {
		if req.DonorId, err = h.parseOptionalID(*body.DonorId, "donor_id"); err != nil {
			h.respondError(c, err)
			return
		}
	}
	if body.Type != nil {
		t := transaction.Types(*body.Type)
		req.Type = &t
	}
	if body.PaymentMethod != nil {
		m := transaction.PaymentMethod(*body.PaymentMethod)
		req.PaymentMethod = &m
	}
	if body.Status != nil {
		s := transaction.Status(*body.Status)
		req.Status = &s
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.TransactionService.UpdateTransaction(c.Request.Context(), scope, transactionID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contracts.TransactionResponse{
		Message:     "Transaction updated",
		Transaction: updated,
	})
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	transactionID, err := h.parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	scope, err := h.scope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.TransactionService.DeleteTransaction(c.Request.Context(), scope, transactionID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListFundTransactions(c *gin.Context) {
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

	filters, err := h.parseTransactionFilters(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	pagination := h.parsePagination(c)
	entries, total, err := h.TransactionService.ListByFund(c.Request.Context(), scope, fundID, filters, pagination)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pkg.NewPaginatedResponse(entries, pagination, total))
}
