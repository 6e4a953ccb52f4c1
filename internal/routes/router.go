package routes

import (
	"github.com/shakilmiahcse/social-org-finance/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Register mounts the ledger API on router. Every /api route except
// organization sign-up runs under the caller's tenant scope.
func Register(router *gin.Engine, handler *Handler, jwtSvc *middleware.JwtService, publicLimiter, tenantLimiter *middleware.RateLimiter) {
	perm := middleware.RequirePermission

	router.GET("/healthz", handler.Health)

	public := router.Group("/api")
	public.Use(middleware.RateLimit(publicLimiter))
	{
		public.POST("/organizations", handler.CreateOrganization)
	}

	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(jwtSvc))
	private.Use(middleware.RateLimitByTenant(tenantLimiter))
	{
		org := private.Group("/organization")
		{
			org.GET("", perm(middleware.PermissionOrganizationRead), handler.GetOrganization)
			org.PATCH("", perm(middleware.PermissionOrganizationWrite), handler.UpdateOrganization)
		}

		funds := private.Group("/funds")
		{
			funds.POST("", perm(middleware.PermissionFundsWrite), handler.CreateFund)
			funds.GET("", perm(middleware.PermissionFundsRead), handler.ListFunds)
			funds.GET("/main", perm(middleware.PermissionFundsRead), handler.GetMainFund)
			funds.GET("/balances", perm(middleware.PermissionFundsRead), handler.ListFundBalances)
			funds.GET("/:id", perm(middleware.PermissionFundsRead), handler.GetFund)
			funds.PATCH("/:id", perm(middleware.PermissionFundsWrite), handler.UpdateFund)
			funds.DELETE("/:id", perm(middleware.PermissionFundsWrite), handler.DeleteFund)
			funds.POST("/:id/close", perm(middleware.PermissionFundsWrite), handler.CloseFund)
			funds.POST("/:id/reopen", perm(middleware.PermissionFundsWrite), handler.ReopenFund)
			funds.POST("/:id/set-main", perm(middleware.PermissionFundsWrite), handler.SetMainFund)
			funds.GET("/:id/balance", perm(middleware.PermissionFundsRead), handler.GetFundBalance)
			funds.GET("/:id/history", perm(middleware.PermissionFundsRead), handler.GetFundHistory)
			funds.GET("/:id/transactions", perm(middleware.PermissionTransactionsRead), handler.ListFundTransactions)
		}

		donors := private.Group("/donors")
		{
			donors.POST("", perm(middleware.PermissionDonorsWrite), handler.CreateDonor)
			donors.GET("", perm(middleware.PermissionDonorsRead), handler.ListDonors)
			donors.GET("/:id", perm(middleware.PermissionDonorsRead), handler.GetDonor)
			donors.PATCH("/:id", perm(middleware.PermissionDonorsWrite), handler.UpdateDonor)
			donors.DELETE("/:id", perm(middleware.PermissionDonorsWrite), handler.DeleteDonor)
			donors.GET("/:id/transactions", perm(middleware.PermissionTransactionsRead), handler.ListDonorTransactions)
		}

		transactions := private.Group("/transactions")
		{
			transactions.POST("", perm(middleware.PermissionTransactionsWrite), handler.CreateTransaction)
			transactions.POST("/income", perm(middleware.PermissionTransactionsWrite), handler.CreateIncome)
			transactions.POST("/expense", perm(middleware.PermissionTransactionsWrite), handler.CreateExpense)
			transactions.GET("", perm(middleware.PermissionTransactionsRead), handler.ListTransactions)
			transactions.GET("/txn/:txn_id", perm(middleware.PermissionTransactionsRead), handler.GetTransactionByTxnID)
			transactions.GET("/:id", perm(middleware.PermissionTransactionsRead), handler.GetTransaction)
			transactions.GET("/:id/receipt", perm(middleware.PermissionTransactionsRead), handler.GetReceipt)
			transactions.PATCH("/:id", perm(middleware.PermissionTransactionsWrite), handler.UpdateTransaction)
			transactions.DELETE("/:id", perm(middleware.PermissionTransactionsWrite), handler.DeleteTransaction)
		}

		adjustments := private.Group("/adjustments")
		{
			adjustments.POST("", perm(middleware.PermissionAdjustmentsWrite), handler.CreateAdjustment)
			adjustments.GET("", perm(middleware.PermissionAdjustmentsRead), handler.ListAdjustments)
			adjustments.GET("/:id", perm(middleware.PermissionAdjustmentsRead), handler.GetAdjustment)
			adjustments.DELETE("/:id", perm(middleware.PermissionAdjustmentsWrite), handler.DeleteAdjustment)
		}

		reports := private.Group("/reports")
		reports.Use(perm(middleware.PermissionReportsRead))
		{
			reports.GET("/summary", handler.GetSummary)
			reports.GET("/top-donors", handler.GetTopDonors)
			reports.GET("/monthly-comparison", handler.GetMonthlyComparison)
			reports.GET("/donation-distribution", handler.GetDonationDistribution)
		}
	}
}
