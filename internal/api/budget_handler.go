package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/budget-server/internal/models"
)

func (h *Handler) CreateBudget(c *gin.Context) {
	var req models.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}

	budget, err := h.service.CreateBudget(c.Request.Context(), principal(c).UserID, req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.BudgetResponse{Status: "success", Budget: *budget})
}

func (h *Handler) GetBudget(c *gin.Context) {
	budget, err := h.service.GetBudget(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BudgetResponse{Status: "success", Budget: *budget})
}

func (h *Handler) EditBudget(c *gin.Context) {
	var req models.EditBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}

	budget, err := h.service.EditBudgetName(c.Request.Context(), principal(c).UserID, c.Param("id"), req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BudgetResponse{Status: "success", Budget: *budget})
}

func (h *Handler) DeleteBudget(c *gin.Context) {
	if err := h.service.DeleteBudget(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) AddBudgetUser(c *gin.Context) {
	var req models.ShareBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}

	budget, err := h.service.AddBudgetUser(c.Request.Context(), principal(c).UserID, c.Param("id"), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BudgetResponse{Status: "success", Budget: *budget})
}

func (h *Handler) RemoveBudgetUser(c *gin.Context) {
	budget, err := h.service.RemoveBudgetUser(c.Request.Context(), principal(c).UserID, c.Param("id"), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BudgetResponse{Status: "success", Budget: *budget})
}

// GetBudgetTransactions supports ?type=&category=&start=&end=
func (h *Handler) GetBudgetTransactions(c *gin.Context) {
	txType, ok := typeQuery(c)
	if !ok {
		return
	}
	dateRange, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	txs, err := h.service.GetBudgetTransactions(c.Request.Context(), principal(c), c.Param("id"), models.SearchOptions{
		Type:      txType,
		Category:  c.Query("category"),
		DateRange: dateRange,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionListResponse{Status: "success", Transactions: txs})
}

func (h *Handler) ListBudgets(c *gin.Context) {
	h.listBudgets(c, h.service.ListUserBudgets)
}

func (h *Handler) ListOwnedBudgets(c *gin.Context) {
	h.listBudgets(c, h.service.ListOwnedBudgets)
}

func (h *Handler) ListSharedBudgets(c *gin.Context) {
	h.listBudgets(c, h.service.ListSharedBudgets)
}

func (h *Handler) listBudgets(c *gin.Context, list budgetLister) {
	budgets, err := list(c.Request.Context(), principal(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BudgetListResponse{Status: "success", Budgets: budgets})
}
