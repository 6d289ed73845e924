package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/service"
)

type budgetLister func(ctx context.Context, userID string) ([]models.BudgetWithUsers, error)

// typeQuery reads an optional ?type= filter. On failure the response has
// already been written.
func typeQuery(c *gin.Context) (*models.TransactionType, bool) {
	value, ok := c.GetQuery("type")
	if !ok || value == "" {
		return nil, true
	}

	txType := models.TransactionType(value)
	if !txType.Valid() {
		respondInvalid(c, fmt.Sprintf("invalid type %q: must be income or expense", value))
		return nil, false
	}
	return &txType, true
}

// dateRangeQuery reads optional ?start=&end= days; both or neither must be set
func dateRangeQuery(c *gin.Context) (*models.DateRange, bool) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" && end == "" {
		return nil, true
	}
	if start == "" || end == "" {
		respondInvalid(c, "start and end must be given together")
		return nil, false
	}

	from, err := time.Parse(service.DateLayout, start)
	if err != nil {
		respondInvalid(c, fmt.Sprintf("invalid start %q, expected YYYY-MM-DD", start))
		return nil, false
	}
	to, err := time.Parse(service.DateLayout, end)
	if err != nil {
		respondInvalid(c, fmt.Sprintf("invalid end %q, expected YYYY-MM-DD", end))
		return nil, false
	}
	if to.Before(from) {
		respondInvalid(c, "end must not be before start")
		return nil, false
	}

	return &models.DateRange{Start: from, End: to}, true
}

// dateQuery reads an optional ?date= day, defaulting to today in UTC
func dateQuery(c *gin.Context) (time.Time, bool) {
	value := c.Query("date")
	if value == "" {
		return time.Now().UTC(), true
	}

	date, err := time.Parse(service.DateLayout, value)
	if err != nil {
		respondInvalid(c, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value))
		return time.Time{}, false
	}
	return date, true
}
