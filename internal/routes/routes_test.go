package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shakilmiahcse/social-org-finance/config"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/fund"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/tenant"
	"github.com/shakilmiahcse/social-org-finance/internal/domain/transaction"
	"github.com/shakilmiahcse/social-org-finance/internal/ledgertest"
	"github.com/shakilmiahcse/social-org-finance/internal/middleware"
	"github.com/shakilmiahcse/social-org-finance/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	t      *testing.T
	env    *ledgertest.Env
	jwt    *middleware.JwtService
	router *gin.Engine
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := ledgertest.NewEnv()
	jwtSvc, err := middleware.NewJwtService(config.JWTConfig{Secret: "routes-test", Issuer: "ledger-test"})
	require.NoError(t, err)

	public := middleware.NewRateLimiter(1000, time.Minute)
	private := middleware.NewRateLimiter(1000, time.Minute)
	t.Cleanup(public.Stop)
	t.Cleanup(private.Stop)

	router := gin.New()
	routes.Register(router, &routes.Handler{
		OrganizationService: env.Organizations,
		FundService:         env.Funds,
		DonorService:        env.Donors,
		TransactionService:  env.Transactions,
		BalanceService:      env.Balances,
		AdjustmentService:   env.Adjustments,
	}, jwtSvc, public, private)

	return &apiFixture{t: t, env: env, jwt: jwtSvc, router: router}
}

func (f *apiFixture) token(scope tenant.Scope, permissions ...string) string {
	f.t.Helper()
	if len(permissions) == 0 {
		permissions = []string{middleware.PermissionAll}
	}
	token, err := f.jwt.GenerateToken(scope.OrganizationId, scope.ActorId, permissions, time.Hour)
	require.NoError(f.t, err)
	return token
}

func (f *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createdID(t *testing.T, w *httptest.ResponseRecorder, key string) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entity, ok := decode(t, w)[key].(map[string]interface{})
	require.True(t, ok)
	return entity["id"].(string)
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	w := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateOrganizationIsPublic(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodPost, "/api/organizations", "", map[string]string{
		"name":  "Alpha Trust",
		"email": "office@alpha.org",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/organizations", "", map[string]string{"name": "No Email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["error"])
}

func TestLedgerFlow(t *testing.T) {
	api := newAPI(t)
	scope := api.env.NewOrganization(t, "Alpha")
	token := api.token(scope)

	mainID := createdID(t, api.do(http.MethodPost, "/api/funds", token, map[string]string{
		"name": "General", "type": "main",
	}), "fund")
	campaignID := createdID(t, api.do(http.MethodPost, "/api/funds", token, map[string]string{
		"name": "Winter Relief",
	}), "fund")

	w := api.do(http.MethodPost, "/api/transactions/income", token, map[string]string{
		"fund_id":        mainID,
		"amount":         "1000.00",
		"payment_method": "cash",
		"status":         "completed",
	})
	txnID := createdID(t, w, "transaction")

	w = api.do(http.MethodPost, "/api/adjustments", token, map[string]string{
		"main_fund_id":     mainID,
		"campaign_fund_id": campaignID,
		"amount":           "250",
		"type":             "to_campaign",
	})
	createdID(t, w, "adjustment")

	w = api.do(http.MethodGet, "/api/funds/"+mainID+"/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decimal.RequireFromString(decode(t, w)["balance"].(string))
	assert.True(t, decimal.NewFromInt(750).Equal(got), got.String())

	w = api.do(http.MethodGet, "/api/funds/balances", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	total := decimal.RequireFromString(decode(t, w)["total"].(string))
	assert.True(t, decimal.NewFromInt(1000).Equal(total), "adjustments move money without changing the total")

	w = api.do(http.MethodGet, "/api/transactions/"+txnID+"/receipt", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/transactions?fund_id="+campaignID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = api.do(http.MethodGet, "/api/reports/summary", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDateOnlyUpperBoundCoversTheWholeDay(t *testing.T) {
	api := newAPI(t)
	scope := api.env.NewOrganization(t, "Alpha")
	token := api.token(scope)
	main := api.env.MustFund(t, scope, "General", fund.TypeMain)
	api.env.MustPost(t, scope, main, transaction.Credit, "100")

	today := time.Now().UTC().Format(time.DateOnly)

	w := api.do(http.MethodGet, "/api/reports/summary?from="+today+"&to="+today, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)["summary"].(map[string]interface{})
	credit := decimal.RequireFromString(summary["totalCredit"].(string))
	assert.True(t, decimal.NewFromInt(100).Equal(credit), credit.String())
	assert.EqualValues(t, 1, summary["transactionCount"])

	w = api.do(http.MethodGet, "/api/transactions?date_from="+today+"&date_to="+today, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["total"])

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(time.DateOnly)
	w = api.do(http.MethodGet, "/api/transactions?date_to="+yesterday, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0, decode(t, w)["total"])
}

func TestReportBreakdowns(t *testing.T) {
	api := newAPI(t)
	scope := api.env.NewOrganization(t, "Alpha")
	token := api.token(scope)
	main := api.env.MustFund(t, scope, "General", fund.TypeMain)
	api.env.MustPost(t, scope, main, transaction.Credit, "500")
	api.env.MustPost(t, scope, main, transaction.Credit, "7000")
	api.env.MustPost(t, scope, main, transaction.Debit, "100")

	w := api.do(http.MethodGet, "/api/reports/monthly-comparison", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	current := decode(t, w)["comparison"].(map[string]interface{})["current"].(map[string]interface{})
	credit := decimal.RequireFromString(current["credit"].(string))
	assert.True(t, decimal.NewFromInt(7500).Equal(credit), credit.String())

	w = api.do(http.MethodGet, "/api/reports/donation-distribution", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	buckets := decode(t, w)["distribution"].([]interface{})
	require.Len(t, buckets, 2)
	assert.Equal(t, "large", buckets[0].(map[string]interface{})["range"])

	w = api.do(http.MethodGet, "/api/reports/donation-distribution?from=2024-02-01&to=2024-01-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	api := newAPI(t)
	alpha := api.env.NewOrganization(t, "Alpha")
	beta := api.env.NewOrganization(t, "Beta")

	fundID := createdID(t, api.do(http.MethodPost, "/api/funds", api.token(alpha), map[string]string{
		"name": "General", "type": "main",
	}), "fund")

	w := api.do(http.MethodGet, "/api/funds/"+fundID, api.token(beta), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "FUND_NOT_FOUND", decode(t, w)["error"])

	w = api.do(http.MethodPost, "/api/transactions/income", api.token(beta), map[string]string{
		"fund_id":        fundID,
		"amount":         "10",
		"payment_method": "cash",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "foreign fund references are rejected as invalid input")
}

func TestErrorMapping(t *testing.T) {
	api := newAPI(t)
	scope := api.env.NewOrganization(t, "Alpha")
	token := api.token(scope)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/funds", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"missing permission", http.MethodPost, "/api/funds", api.token(scope, middleware.PermissionFundsRead), map[string]string{"name": "X"}, http.StatusForbidden, "FORBIDDEN"},
		{"bad id", http.MethodGet, "/api/funds/not-a-ulid", token, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no main fund", http.MethodGet, "/api/funds/main", token, nil, http.StatusNotFound, "FUND_NOT_FOUND"},
		{"bad amount", http.MethodPost, "/api/transactions/expense", token, map[string]string{
			"fund_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV", "amount": "-1", "payment_method": "cash",
		}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"inverted range", http.MethodGet, "/api/reports/summary?from=2024-02-01&to=2024-01-01", token, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode(t, w)["error"])
		})
	}
}
