package handler

import (
	"net/http"

	"remitsystem/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 注册所有路由
func SetupRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *gin.Engine {
	h := NewHandler(db, redisClient, cfg)

	r := gin.New()

	r.Use(LoggerMiddleware())
	r.Use(RecoveryMiddleware())
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(ActorMiddleware())
	{
		rate := api.Group("/rate")
		{
			rate.POST("/publish", h.PublishRate)
			rate.GET("/active", h.GetActiveRate)
			rate.GET("/history", h.ListRates)
			rate.POST("/purchase/bulk", h.ApplyPurchaseRateRange)
			rate.POST("/purchase/:id", h.SetPurchaseRate)
		}

		transaction := api.Group("/transaction")
		{
			transaction.POST("/create", h.CreateTransaction)
			transaction.GET("/list", h.ListTransactions)
			transaction.GET("/:id", h.GetTransaction)
			transaction.GET("/:id/history", h.GetTransactionHistory)
			transaction.POST("/:id/edit-mode", h.EnterEditMode)
			transaction.POST("/:id/edit", h.EditTransaction)
			transaction.POST("/:id/advance", h.AdvanceTransaction)
			transaction.POST("/:id/reject", h.RejectTransaction)
			transaction.POST("/:id/cancel", h.CancelTransaction)
			transaction.POST("/:id/resend", h.ResendTransaction)
		}

		settlement := api.Group("/settlement")
		{
			settlement.POST("/payment", h.RecordPayment)
			settlement.GET("/payment/list", h.ListPayments)
			settlement.GET("/payment/:id", h.GetPayment)
			settlement.DELETE("/payment/:id", h.DeletePayment)
			settlement.POST("/commission/mark-paid", h.MarkCommissionPaid)
			settlement.POST("/vendor-payment/:id/mark", h.MarkPaidByVendor)
			settlement.POST("/vendor-payment/:id/unmark", h.UnmarkPaid)
			settlement.POST("/vendor-payment/:id/verify", h.VerifyVendorPayment)
			settlement.POST("/vendor-payment/:id/reject", h.RejectVendorPayment)
		}

		account := api.Group("/account")
		{
			account.POST("/create", h.CreateAccount)
			account.GET("/list", h.ListAccounts)
			account.GET("/:id", h.GetAccount)
			account.POST("/:id/deposit", h.DepositAccount)
			account.POST("/:id/withdraw", h.WithdrawAccount)
			account.GET("/:id/flows", h.ListAccountFlows)
		}

		vendor := api.Group("/vendor")
		{
			vendor.POST("/create", h.CreateVendor)
			vendor.GET("/list", h.ListVendors)
			vendor.GET("/:id", h.GetVendor)
			vendor.POST("/:id/commission", h.UpdateVendorCommission)
		}

		report := api.Group("/report")
		{
			report.GET("/debt/summary", h.GetDebtSummary)
			report.GET("/debt/detail", h.GetDebtDetail)
			report.GET("/commission", h.GetVendorCommissions)
			report.GET("/vendor", h.GetVendorReport)
			report.GET("/monthly", h.GetMonthlyStats)
		}
	}

	return r
}
