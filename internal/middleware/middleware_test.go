package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/middleware"
	"github.com/shakilmiahcse/social-org-finance/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJwt(t *testing.T) *middleware.JwtService {
	t.Helper()
	svc, err := middleware.NewJwtService(config.JWTConfig{Secret: "test-secret", Issuer: "ledger-test"})
	require.NoError(t, err)
	return svc
}

func newRouter(jwtSvc *middleware.JwtService, handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	chain := append([]gin.HandlerFunc{middleware.AuthMiddleware(jwtSvc)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		scope, err := middleware.ScopeFromContext(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, scope.OrganizationId.String())
	})
	router.GET("/ping", chain...)
	return router
}

func call(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNewJwtServiceRequiresSecret(t *testing.T) {
	_, err := middleware.NewJwtService(config.JWTConfig{})
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	jwtSvc := newJwt(t)
	router := newRouter(jwtSvc)
	org := pkg.GenerateULIDObject()

	token, err := jwtSvc.GenerateToken(org, pkg.GenerateULIDObject(), nil, time.Hour)
	require.NoError(t, err)

	w := call(router, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, org.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(router, token+"x").Code)

	other, err := middleware.NewJwtService(config.JWTConfig{Secret: "other", Issuer: "ledger-test"})
	require.NoError(t, err)
	forged, err := other.GenerateToken(org, pkg.GenerateULIDObject(), nil, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(router, forged).Code)
}

func TestRequirePermission(t *testing.T) {
	jwtSvc := newJwt(t)
	router := newRouter(jwtSvc, middleware.RequirePermission(middleware.PermissionFundsWrite))
	org, actor := pkg.GenerateULIDObject(), pkg.GenerateULIDObject()

	tests := []struct {
		name        string
		permissions []string
		want        int
	}{
		{"granted", []string{middleware.PermissionFundsWrite}, http.StatusOK},
		{"wildcard", []string{middleware.PermissionAll}, http.StatusOK},
		{"read only", []string{middleware.PermissionFundsRead}, http.StatusForbidden},
		{"none", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwtSvc.GenerateToken(org, actor, tt.permissions, time.Hour)
			require.NoError(t, err)
			assert.Equal(t, tt.want, call(router, token).Code)
		})
	}
}

func TestRateLimitByTenant(t *testing.T) {
	jwtSvc := newJwt(t)
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	router := newRouter(jwtSvc, middleware.RateLimitByTenant(limiter))

	first, err := jwtSvc.GenerateToken(pkg.GenerateULIDObject(), pkg.GenerateULIDObject(), nil, time.Hour)
	require.NoError(t, err)
	second, err := jwtSvc.GenerateToken(pkg.GenerateULIDObject(), pkg.GenerateULIDObject(), nil, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(router, first).Code)
	assert.Equal(t, http.StatusOK, call(router, first).Code)
	limited := call(router, first)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call(router, second).Code, "limits are per tenant")
}
