package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/service"
	"github.com/rongwang/budget-server/internal/utils"
)

// Handler serves the HTTP API on top of the service layer
type Handler struct {
	service service.Service
	logger  *utils.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Handler{
		service: svc,
		logger:  logger.WithComponent("http"),
	}
}

// SetupRoutes registers every route on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(RequestLogger(h.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.Login)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware())

	users := protected.Group("/users")
	{
		users.GET("/me", h.GetCurrentUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	budgets := protected.Group("/budgets")
	{
		budgets.POST("", h.CreateBudget)
		budgets.GET("", h.ListBudgets)
		budgets.GET("/owned", h.ListOwnedBudgets)
		budgets.GET("/shared", h.ListSharedBudgets)
		budgets.GET("/:id", h.GetBudget)
		budgets.PATCH("/:id", h.EditBudget)
		budgets.DELETE("/:id", h.DeleteBudget)
		budgets.POST("/:id/users", h.AddBudgetUser)
		budgets.DELETE("/:id/users/:userId", h.RemoveBudgetUser)
		budgets.GET("/:id/transactions", h.GetBudgetTransactions)
	}

	categories := protected.Group("/categories")
	{
		categories.GET("", h.ListAvailableCategories)
		categories.POST("/default", h.CreateDefaultCategory)
		categories.GET("/default", h.ListDefaultCategories)
		categories.PATCH("/default/:id", h.EditDefaultCategory)
		categories.DELETE("/default/:id", h.DeleteDefaultCategory)
		categories.POST("/custom", h.CreateCustomCategory)
		categories.GET("/custom", h.ListCustomCategories)
		categories.PATCH("/custom/:id", h.EditCustomCategory)
		categories.DELETE("/custom/:id", h.DeleteCustomCategory)
	}

	transactions := protected.Group("/transactions")
	{
		transactions.POST("", h.CreateTransaction)
		transactions.GET("", h.ListTransactions)
		transactions.GET("/:id", h.GetTransaction)
		transactions.PATCH("/:id", h.EditTransaction)
		transactions.DELETE("/:id", h.DeleteTransaction)
	}

	reports := protected.Group("/reports")
	{
		reports.GET("", h.GetAllReports)
		reports.GET("/:budgetId", h.GetReport)
		reports.GET("/:budgetId/month", h.GetMonthReport)
		reports.GET("/:budgetId/incomes", h.GetIncomes)
		reports.GET("/:budgetId/expenses", h.GetExpenses)
		reports.GET("/:budgetId/export", h.ExportReport)
	}
}

// principal returns the caller set by AuthMiddleware
func principal(c *gin.Context) models.Principal {
	return models.Principal{
		UserID: c.GetString("userId"),
		Role:   models.Role(c.GetString("role")),
	}
}
