package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func reportResponse(r report.Named) models.ReportResponse {
	return models.ReportResponse{
		Status:   "success",
		Name:     r.Name,
		Incomes:  r.Incomes,
		Expenses: r.Expenses,
		Balance:  r.Balance.StringFixed(2),
	}
}

func (h *Handler) GetReport(c *gin.Context) {
	dateRange, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	r, err := h.service.GetReport(c.Request.Context(), principal(c), c.Param("budgetId"), dateRange)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reportResponse(*r))
}

// GetMonthReport reports on the month of ?date=, the current month by default
func (h *Handler) GetMonthReport(c *gin.Context) {
	reference, ok := dateQuery(c)
	if !ok {
		return
	}

	r, err := h.service.GetMonthReport(c.Request.Context(), principal(c), c.Param("budgetId"), reference)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, reportResponse(*r))
}

func (h *Handler) GetIncomes(c *gin.Context) {
	dateRange, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	txs, err := h.service.GetIncomes(c.Request.Context(), principal(c), c.Param("budgetId"), c.Query("category"), dateRange)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionListResponse{Status: "success", Transactions: txs})
}

func (h *Handler) GetExpenses(c *gin.Context) {
	dateRange, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	txs, err := h.service.GetExpenses(c.Request.Context(), principal(c), c.Param("budgetId"), c.Query("category"), dateRange)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TransactionListResponse{Status: "success", Transactions: txs})
}

func (h *Handler) GetAllReports(c *gin.Context) {
	dateRange, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	reports, err := h.service.GetAllReports(c.Request.Context(), principal(c), dateRange)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := models.ReportListResponse{Status: "success", Reports: make([]models.ReportResponse, 0, len(reports))}
	for _, r := range reports {
		resp.Reports = append(resp.Reports, reportResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

// ExportReport sends the budget report as an XLSX attachment
func (h *Handler) ExportReport(c *gin.Context) {
	dateRange, ok := dateRangeQuery(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	budgetID := c.Param("budgetId")
	if err := h.service.ExportReport(c.Request.Context(), principal(c), budgetID, dateRange, &buf); err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.xlsx"`, budgetID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
