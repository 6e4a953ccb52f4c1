package routes

import (
	"context"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/adjustment"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/donor"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/organization"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/logger"
	"github.com/shakilmiahcse/social-org-finance/internal/middleware"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

type Handler struct {
	OrganizationService *organization.Service
	FundService         *fund.Service
	DonorService        *donor.Service
	TransactionService  *transaction.Service
	BalanceService      *balance.Service
	AdjustmentService   *adjustment.Service
	Ping                func(ctx context.Context) error
}

func (h *Handler) scope(c *gin.Context) (tenant.Scope, error) {
	return middleware.ScopeFromContext(c)
}

func (h *Handler) parseID(c *gin.Context, param string) (ulid.ULID, error) {
	id, err := pkg.ParseULID(c.Param(param))
	if err != nil {
		return ulid.ULID{}, appErrors.NewValidationError(param, "has an invalid format")
	}
	return id, nil
}

func (h *Handler) parseOptionalID(value, field string) (*ulid.ULID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := pkg.ParseULID(value)
	if err != nil {
		return nil, appErrors.NewValidationError(field, "has an invalid format")
	}
	return &id, nil
}

// parseDate reads an optional date query parameter. Upper bounds given as a
// bare date include the whole day.
func (h *Handler) parseDate(value, field string, upper bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := pkg.ParseDate(value, upper)
	if err != nil {
		return nil, appErrors.NewValidationError(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	}
	return &t, nil
}

func (h *Handler) bindJSON(c *gin.Context, body interface{}) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		h.respondError(c, appErrors.ParseValidationErrors(err))
		return false
	}
	return true
}

func (h *Handler) parsePagination(c *gin.Context) *pkg.PaginationParams {
	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	var pageNum, limitNum int
	if p, err := pkg.ParseInt(page); err == nil && p > 0 {
		pageNum = p
	} else {
		pageNum = 1
	}

	if l, err := pkg.ParseInt(limit); err == nil && l > 0 {
		limitNum = l
	} else {
		limitNum = 10
	}

	return pkg.NormalizePagination(&pkg.PaginationParams{
		Page:  pageNum,
		Limit: limitNum,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	event := logger.Error().Str("code", appErr.Code).Str("path", c.FullPath())
	if appErr.StatusCode < 500 {
		event = logger.Warn().Str("code", appErr.Code).Str("path", c.FullPath())
	}
	if appErr.Err != nil {
		event = event.Err(appErr.Err)
	}
	event.Msg("request_error")
	payload := gin.H{
		"error":   appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		payload["details"] = appErr.Details
	}
	c.JSON(appErr.StatusCode, payload)
}
