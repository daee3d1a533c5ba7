package handlers

import (
	"net/http"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/auth"
	"go-pos-backoffice/internal/metrics"
	"go-pos-backoffice/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterOptions are the HTTP settings that are not services.
type RouterOptions struct {
	Tokens            *auth.TokenManager
	Metrics           *metrics.Metrics
	AllowedOrigins    []string
	AllowRegistration bool
}

// NewRouter wires every route of the API.
func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}
	h.startedAt = time.Now()

	r := gin.New()
	r.Use(middleware.Recovery(h.Log))
	r.Use(middleware.RequestLogger(h.Log))
	r.Use(opts.Metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/system/status", h.GetSystemStatus)

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", h.Logout)
	if opts.AllowRegistration {
		authGroup.POST("/register", h.Register)
		h.Log.Warn("registration route is open, disable it in production")
	} else {
		h.Log.Info("registration route is disabled")
	}

	// --- PROTECTED ROUTES ---
	api := v1.Group("")
	api.Use(middleware.AuthMiddleware(opts.Tokens, h.CookieName))
	admin := middleware.RequireAdmin()
	{
		api.GET("/auth/me", h.Me)

		// Staff & admin
		api.GET("/products", h.GetProducts)
		api.GET("/products/low-stock", h.GetLowStock)
		api.GET("/products/scan/:sku", h.ScanProduct)
		api.GET("/products/:id", h.GetProduct)

		cart := api.Group("/cart")
		cart.GET("", h.GetCart)
		cart.POST("/add", h.AddToCart)
		cart.POST("/scan", h.ScanToCart)
		cart.PUT("/item/:itemId", h.UpdateCartItem)
		cart.DELETE("/item/:itemId", h.RemoveCartItem)
		cart.DELETE("/clear", h.ClearCart)
		cart.PUT("/note", h.SetCartNote)
		cart.POST("/checkout", h.CheckoutCart)
		cart.GET("/all", admin, h.ListCarts)

		debt := api.Group("/debt")
		debt.GET("/user", h.GetUserDebts)
		debt.GET("/user/:debtId", h.GetUserDebt)
		debt.POST("/user/:debtId/pay", h.PayDebt)
		debt.GET("/statistics", h.GetDebtStatistics)
		debt.GET("/all", admin, h.ListDebts)
		debt.GET("/admin/overdue", admin, h.GetOverdueReport)
		debt.PUT("/admin/:debtId", admin, h.UpdateDebt)
		debt.POST("/admin/:debtId/remind", admin, h.SendDebtReminder)
		debt.DELETE("/admin/delete-all", admin, h.DeleteAllDebts)

		exp := api.Group("/expenditures")
		exp.POST("", h.CreateExpenditure)
		exp.GET("", h.ListExpenditures)
		exp.GET("/statistics", h.GetExpenditureStatistics)
		exp.GET("/:id", h.GetExpenditure)
		exp.PUT("/:id", h.UpdateExpenditure)
		exp.PUT("/:id/approve", admin, h.ApproveExpenditure)
		exp.PUT("/:id/reject", admin, h.RejectExpenditure)
		exp.PUT("/:id/complete", admin, h.CompleteExpenditure)
		exp.DELETE("/:id", admin, h.DeleteExpenditure)

		// Admin only
		api.POST("/ask", admin, h.AskAI)
		api.GET("/products/statistics", admin, h.GetInventoryStatistics)
		api.POST("/products", admin, h.AddProduct)
		api.PUT("/products/:id", admin, h.UpdateProduct)
		api.POST("/products/:id/restock", admin, h.RestockProduct)
		api.DELETE("/products/:id", admin, h.DeleteProduct)

		reports := api.Group("/reports", admin)
		reports.GET("", h.GetOverview)
		reports.GET("/sales", h.GetSalesReport)
		reports.GET("/products", h.GetProductReport)
		reports.GET("/categories", h.GetCategoryReport)
		reports.GET("/payment-methods", h.GetPaymentMethodReport)
		reports.GET("/profit-loss", h.GetProfitLoss)
		reports.GET("/valuation", h.GetStockValuation)
		reports.GET("/:id", h.GetReport)
		reports.DELETE("", h.DeleteReports)
		reports.DELETE("/delete-all", h.DeleteAllReports)
		reports.DELETE("/:id", h.DeleteReport)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "code": apperrors.CodeNotFound, "message": "route not found"})
	})
	return r, nil
}
