package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/budget-server/internal/models"
)

func (h *Handler) CreateTransaction(c *gin.Context) {
	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}

	tx, err := h.service.CreateTransaction(c.Request.Context(), principal(c), models.NewTransaction{
		BudgetID:   req.BudgetID,
		CategoryID: req.CategoryID,
		Type:       req.Type,
		Amount:     req.Amount,
		Date:       req.Date,
		Comment:    req.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.TransactionResponse{Status: "success", Transaction: *tx})
}

func (h *Handler) GetTransaction(c *gin.Context) {
	tx, err := h.service.GetTransaction(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionResponse{Status: "success", Transaction: *tx})
}

func (h *Handler) EditTransaction(c *gin.Context) {
	var req models.EditTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}

	tx, err := h.service.EditTransaction(c.Request.Context(), principal(c), c.Param("id"), models.TransactionPatch{
		CategoryID: req.CategoryID,
		Type:       req.Type,
		Amount:     req.Amount,
		Date:       req.Date,
		Comment:    req.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionResponse{Status: "success", Transaction: *tx})
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	if err := h.service.DeleteTransaction(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.service.ListTransactions(c.Request.Context(), principal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionListResponse{Status: "success", Transactions: txs})
}
