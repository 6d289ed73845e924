package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/policy"
	"github.com/rongwang/budget-server/internal/repository"
	"github.com/rongwang/budget-server/internal/utils"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of transaction dates
const DateLayout = "2006-01-02"

// maxAmount is the first value that no longer fits NUMERIC(10,2)
var maxAmount = decimal.New(1, 8)

func (s *DefaultService) CreateTransaction(ctx context.Context, p models.Principal, input models.NewTransaction) (*models.Transaction, error) {
	if err := validAmount(input.Amount); err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, BadRequest("transaction type must be income or expense")
	}
	date, err := ParseDate(input.Date)
	if err != nil {
		return nil, err
	}

	budget, err := s.getBudget(ctx, input.BudgetID)
	if err != nil {
		return nil, err
	}
	if !policy.CanWriteBudget(budget, p) {
		return nil, Forbidden("you don't have permission to add transactions to this budget")
	}

	category, err := s.ResolveCategoryForTransaction(ctx, input.CategoryID, p.UserID)
	if err != nil {
		return nil, err
	}
	if category.TransactionType != input.Type {
		return nil, BadRequest("category %q is for %s transactions", category.Name, category.TransactionType)
	}

	categoryID := category.ID
	tx := &models.Transaction{
		ID:         uuid.New().String(),
		Type:       input.Type,
		Amount:     input.Amount.Round(2),
		Date:       date,
		Comment:    input.Comment,
		UserID:     p.UserID,
		CategoryID: &categoryID,
		BudgetID:   budget.ID,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, NotFound("budget or category no longer exists")
		}
		return nil, Internal("error creating transaction", err)
	}
	tx.CategoryName = &category.Name

	s.logger.Debug("transaction created", utils.FieldBudgetID, budget.ID, utils.FieldUserID, p.UserID)
	return tx, nil
}

func (s *DefaultService) GetTransaction(ctx context.Context, p models.Principal, transactionID string) (*models.Transaction, error) {
	return s.accessibleTransaction(ctx, p, transactionID)
}

// EditTransaction applies a partial update. The category is resolved against
// the categories available to the user who recorded the entry.
func (s *DefaultService) EditTransaction(
	ctx context.Context,
	p models.Principal,
	transactionID string,
	patch models.TransactionPatch,
) (*models.Transaction, error) {
	tx, err := s.accessibleTransaction(ctx, p, transactionID)
	if err != nil {
		return nil, err
	}

	if patch.Amount != nil {
		if err := validAmount(*patch.Amount); err != nil {
			return nil, err
		}
		tx.Amount = patch.Amount.Round(2)
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return nil, BadRequest("transaction type must be income or expense")
		}
		tx.Type = *patch.Type
	}
	if patch.Date != nil {
		date, err := ParseDate(*patch.Date)
		if err != nil {
			return nil, err
		}
		tx.Date = date
	}
	if patch.Comment != nil {
		tx.Comment = patch.Comment
	}
	if patch.CategoryID != nil {
		tx.CategoryID = patch.CategoryID
	}

	if tx.CategoryID != nil {
		category, err := s.ResolveCategoryForTransaction(ctx, *tx.CategoryID, tx.UserID)
		if err != nil {
			return nil, err
		}
		if category.TransactionType != tx.Type {
			return nil, BadRequest("category %q is for %s transactions", category.Name, category.TransactionType)
		}
		tx.CategoryName = &category.Name
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, NotFound("category no longer exists")
		}
		return nil, Internal("error updating transaction", err)
	}
	return tx, nil
}

func (s *DefaultService) DeleteTransaction(ctx context.Context, p models.Principal, transactionID string) error {
	if _, err := s.accessibleTransaction(ctx, p, transactionID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteTransaction(ctx, transactionID)
	if err != nil {
		return Internal("error deleting transaction", err)
	}
	if !deleted {
		return NotFound("transaction not found")
	}
	return nil
}

// ListTransactions returns every transaction for admins and the caller's own otherwise
func (s *DefaultService) ListTransactions(ctx context.Context, p models.Principal) ([]models.Transaction, error) {
	query := repository.TransactionQuery{}
	if !p.IsAdmin() {
		query.UserID = p.UserID
	}

	txs, err := s.repo.ListTransactions(ctx, query)
	if err != nil {
		return nil, Internal("error listing transactions", err)
	}
	return txs, nil
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, BadRequest("invalid date %q, expected YYYY-MM-DD", value)
	}
	return date, nil
}

// Helper methods
func (s *DefaultService) accessibleTransaction(ctx context.Context, p models.Principal, transactionID string) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, Internal("error getting transaction", err)
	}
	if tx == nil {
		return nil, NotFound("transaction not found")
	}
	if !policy.CanAccessTransaction(tx, p) {
		return nil, Forbidden("you don't have access to this transaction")
	}
	return tx, nil
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return BadRequest("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return BadRequest("amount must have at most two decimal places")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return BadRequest("amount must be less than %s", maxAmount.String())
	}
	return nil
}
