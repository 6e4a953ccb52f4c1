package middleware

import (
	"strings"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	appErrors "github.com/shakilmiahcse/social-org-finance/internal/errors"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextOrganizationID = "organization_id"
	ContextActorID        = "actor_id"
	ContextClaims         = "claims"
)

const (
	PermissionAll               = "*"
	PermissionOrganizationRead  = "organization.read"
	PermissionOrganizationWrite = "organization.manage"
	PermissionFundsRead         = "funds.read"
	PermissionFundsWrite        = "funds.manage"
	PermissionDonorsRead        = "donors.read"
	PermissionDonorsWrite       = "donors.manage"
	PermissionTransactionsRead  = "transactions.read"
	PermissionTransactionsWrite = "transactions.manage"
	PermissionAdjustmentsRead   = "adjustments.read"
	PermissionAdjustmentsWrite  = "adjustments.manage"
	PermissionReportsRead       = "reports.read"
)

func abortWithError(c *gin.Context, appErr *appErrors.AppError) {
	payload := gin.H{
		"error":   appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		payload["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.StatusCode, payload)
}

// AuthMiddleware validates the bearer token and stores the tenant context on
// the request.
func AuthMiddleware(jwtSvc *JwtService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			abortWithError(c, appErrors.ErrUnauthorized.WithMessage("missing bearer token"))
			return
		}

		claims, err := jwtSvc.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, appErrors.FromError(err))
			return
		}

		c.Set(ContextOrganizationID, claims.Org)
		c.Set(ContextActorID, claims.Subject)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequirePermission rejects callers whose token does not grant permission.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextClaims)
		claims, ok := value.(*Claims)
		if !exists || !ok {
			abortWithError(c, appErrors.ErrUnauthorized)
			return
		}
		if !claims.HasPermission(permission) {
			abortWithError(c, appErrors.ErrForbidden.WithDetails(map[string]interface{}{
				"permission": permission,
			}))
			return
		}
		c.Next()
	}
}

// ScopeFromContext returns the tenant scope set by AuthMiddleware.
func ScopeFromContext(c *gin.Context) (tenant.Scope, error) {
	orgID, err := pkg.ParseULID(c.GetString(ContextOrganizationID))
	if err != nil {
		return tenant.Scope{}, appErrors.ErrUnauthorized.WithError(err)
	}
	actorID, err := pkg.ParseULID(c.GetString(ContextActorID))
	if err != nil {
		return tenant.Scope{}, appErrors.ErrUnauthorized.WithError(err)
	}
	scope := tenant.NewScope(orgID, actorID)
	if err := scope.Validate(); err != nil {
		return tenant.Scope{}, err
	}
	return scope, nil
}
