package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/budget-server/internal/models"
)

func (h *Handler) CreateDefaultCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}

	category, err := h.service.CreateDefaultCategory(c.Request.Context(), principal(c), req.Name, req.TransactionType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CategoryResponse{Status: "success", Category: *category})
}

func (h *Handler) CreateCustomCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return
	}

	category, err := h.service.CreateCustomCategory(c.Request.Context(), principal(c).UserID, req.Name, req.TransactionType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CategoryResponse{Status: "success", Category: *category})
}

func (h *Handler) EditDefaultCategory(c *gin.Context) {
	patch, ok := bindCategoryPatch(c)
	if !ok {
		return
	}

	category, err := h.service.EditDefaultCategory(c.Request.Context(), principal(c), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CategoryResponse{Status: "success", Category: *category})
}

func (h *Handler) EditCustomCategory(c *gin.Context) {
	patch, ok := bindCategoryPatch(c)
	if !ok {
		return
	}

	category, err := h.service.EditCustomCategory(c.Request.Context(), principal(c).UserID, c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CategoryResponse{Status: "success", Category: *category})
}

func (h *Handler) DeleteDefaultCategory(c *gin.Context) {
	if err := h.service.DeleteDefaultCategory(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteCustomCategory(c *gin.Context) {
	if err := h.service.DeleteCustomCategory(c.Request.Context(), principal(c).UserID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ListDefaultCategories(c *gin.Context) {
	txType, ok := typeQuery(c)
	if !ok {
		return
	}
	h.respondCategories(c)(h.service.ListDefaultCategories(c.Request.Context(), txType))
}

func (h *Handler) ListCustomCategories(c *gin.Context) {
	txType, ok := typeQuery(c)
	if !ok {
		return
	}
	h.respondCategories(c)(h.service.ListCustomCategories(c.Request.Context(), principal(c).UserID, txType))
}

// ListAvailableCategories lists the defaults plus the caller's own categories
func (h *Handler) ListAvailableCategories(c *gin.Context) {
	txType, ok := typeQuery(c)
	if !ok {
		return
	}
	h.respondCategories(c)(h.service.ListAvailableCategories(c.Request.Context(), principal(c).UserID, txType))
}

func (h *Handler) respondCategories(c *gin.Context) func([]models.Category, error) {
	return func(categories []models.Category, err error) {
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.CategoryListResponse{Status: "success", Categories: categories})
	}
}

func bindCategoryPatch(c *gin.Context) (models.CategoryPatch, bool) {
	var req models.EditCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, err.Error())
		return models.CategoryPatch{}, false
	}
	if req.Name == nil && req.TransactionType == nil {
		respondInvalid(c, "nothing to update")
		return models.CategoryPatch{}, false
	}
	return models.CategoryPatch{Name: req.Name, TransactionType: req.TransactionType}, true
}
