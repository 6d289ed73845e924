package service

import (
	"context"
	"io"
	"time"

	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/report"
	"golang.org/x/sync/errgroup"
)

// GetReport computes the balance of a budget, optionally limited to a day range
func (s *DefaultService) GetReport(
	ctx context.Context,
	p models.Principal,
	budgetID string,
	dateRange *models.DateRange,
) (*report.Named, error) {
	budget, err := s.readableBudget(ctx, p, budgetID)
	if err != nil {
		return nil, err
	}
	return s.budgetReport(ctx, budget.Budget, dateRange)
}

// GetMonthReport computes the balance of the calendar month containing reference
func (s *DefaultService) GetMonthReport(
	ctx context.Context,
	p models.Principal,
	budgetID string,
	reference time.Time,
) (*report.Named, error) {
	budget, err := s.readableBudget(ctx, p, budgetID)
	if err != nil {
		return nil, err
	}

	txs, err := s.searchTransactions(ctx, budgetID, models.SearchOptions{})
	if err != nil {
		return nil, err
	}

	return &report.Named{
		Name: budget.Name,
		Data: report.Compute(report.FilterByMonth(txs, reference)),
	}, nil
}

func (s *DefaultService) GetIncomes(
	ctx context.Context,
	p models.Principal,
	budgetID, category string,
	dateRange *models.DateRange,
) ([]models.Transaction, error) {
	return s.typedTransactions(ctx, p, budgetID, models.TransactionTypeIncome, category, dateRange)
}

func (s *DefaultService) GetExpenses(
	ctx context.Context,
	p models.Principal,
	budgetID, category string,
	dateRange *models.DateRange,
) ([]models.Transaction, error) {
	return s.typedTransactions(ctx, p, budgetID, models.TransactionTypeExpense, category, dateRange)
}

// GetAllReports returns one report per budget the caller owns or is shared on
func (s *DefaultService) GetAllReports(
	ctx context.Context,
	p models.Principal,
	dateRange *models.DateRange,
) ([]report.Named, error) {
	budgets, err := s.repo.ListUserBudgets(ctx, p.UserID)
	if err != nil {
		return nil, Internal("error listing budgets", err)
	}

	reports := make([]report.Named, len(budgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sharedUsersFanOut)
	for i := range budgets {
		i := i
		g.Go(func() error {
			r, err := s.budgetReport(gctx, budgets[i], dateRange)
			if err != nil {
				return err
			}
			reports[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// ExportReport writes the budget report as an XLSX workbook to w
func (s *DefaultService) ExportReport(
	ctx context.Context,
	p models.Principal,
	budgetID string,
	dateRange *models.DateRange,
	w io.Writer,
) error {
	r, err := s.GetReport(ctx, p, budgetID, dateRange)
	if err != nil {
		return err
	}
	if err := report.WriteXLSX(w, r.Name, r.Data); err != nil {
		return Internal("error writing report workbook", err)
	}
	return nil
}

// Helper methods
func (s *DefaultService) budgetReport(ctx context.Context, budget models.Budget, dateRange *models.DateRange) (*report.Named, error) {
	txs, err := s.searchTransactions(ctx, budget.ID, models.SearchOptions{DateRange: dateRange})
	if err != nil {
		return nil, err
	}
	// Totals follow FilterByRange whatever the store returned
	if dateRange != nil {
		txs = report.FilterByRange(txs, *dateRange)
	}
	return &report.Named{Name: budget.Name, Data: report.Compute(txs)}, nil
}

func (s *DefaultService) typedTransactions(
	ctx context.Context,
	p models.Principal,
	budgetID string,
	txType models.TransactionType,
	category string,
	dateRange *models.DateRange,
) ([]models.Transaction, error) {
	return s.GetBudgetTransactions(ctx, p, budgetID, models.SearchOptions{
		Type:      &txType,
		Category:  category,
		DateRange: dateRange,
	})
}
