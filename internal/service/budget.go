package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/policy"
	"github.com/rongwang/budget-server/internal/repository"
	"github.com/rongwang/budget-server/internal/utils"
	"golang.org/x/sync/errgroup"
)

// sharedUsersFanOut bounds concurrent shared-user lookups when listing budgets
const sharedUsersFanOut = 8

func (s *DefaultService) CreateBudget(ctx context.Context, ownerID, name string) (*models.BudgetWithUsers, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, BadRequest("budget name must not be empty")
	}

	existing, err := s.repo.GetBudgetByOwnerAndName(ctx, ownerID, name)
	if err != nil {
		return nil, Internal("error checking budget name", err)
	}
	if existing != nil {
		return nil, Conflict("you already have a budget named %q", name)
	}

	budget := &models.Budget{
		ID:      uuid.New().String(),
		Name:    name,
		OwnerID: ownerID,
	}
	if err := s.repo.CreateBudget(ctx, budget); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("you already have a budget named %q", name)
		}
		if errors.Is(err, repository.ErrReferenced) {
			return nil, NotFound("user not found")
		}
		return nil, Internal("error creating budget", err)
	}

	s.logger.Info("budget created", utils.FieldBudgetID, budget.ID, utils.FieldUserID, ownerID)
	return &models.BudgetWithUsers{Budget: *budget, Users: []models.User{}}, nil
}

func (s *DefaultService) GetBudget(ctx context.Context, p models.Principal, budgetID string) (*models.BudgetWithUsers, error) {
	return s.readableBudget(ctx, p, budgetID)
}

// EditBudgetName renames a budget. Only the owner may rename; renaming to the
// current name succeeds without touching the store.
func (s *DefaultService) EditBudgetName(ctx context.Context, ownerID, budgetID, name string) (*models.BudgetWithUsers, error) {
	budget, err := s.getBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsBudget(budget, ownerID) {
		return nil, Forbidden("only the owner can rename this budget")
	}

	name = normalizeName(name)
	if name == "" {
		return nil, BadRequest("budget name must not be empty")
	}

	if name != budget.Name {
		clash, err := s.repo.GetBudgetByOwnerAndName(ctx, ownerID, name)
		if err != nil {
			return nil, Internal("error checking budget name", err)
		}
		if clash != nil && clash.ID != budgetID {
			return nil, Conflict("you already have a budget named %q", name)
		}

		if err := s.repo.UpdateBudgetName(ctx, budgetID, name); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, Conflict("you already have a budget named %q", name)
			}
			return nil, Internal("error renaming budget", err)
		}
		budget.Name = name
	}

	return s.withUsers(ctx, *budget)
}

func (s *DefaultService) DeleteBudget(ctx context.Context, p models.Principal, budgetID string) error {
	budget, err := s.getBudget(ctx, budgetID)
	if err != nil {
		return err
	}
	if !policy.CanWriteBudget(budget, p) {
		return Forbidden("you don't have permission to delete this budget")
	}

	if err := s.repo.DeleteBudget(ctx, budgetID); err != nil {
		return Internal("error deleting budget", err)
	}

	s.logger.Info("budget deleted", utils.FieldBudgetID, budgetID, utils.FieldUserID, p.UserID)
	return nil
}

// AddBudgetUser shares a budget with another user. Sharing with oneself is
// rejected before the budget is even looked up.
func (s *DefaultService) AddBudgetUser(ctx context.Context, ownerID, budgetID, newUserID string) (*models.BudgetWithUsers, error) {
	if newUserID == ownerID {
		return nil, BadRequest("you cannot share a budget with yourself")
	}

	budget, err := s.getBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsBudget(budget, ownerID) {
		return nil, Forbidden("only the owner can share this budget")
	}

	user, err := s.repo.GetUserByID(ctx, newUserID)
	if err != nil {
		return nil, Internal("error getting user", err)
	}
	if user == nil {
		return nil, NotFound("user not found")
	}

	shared, err := s.withUsers(ctx, *budget)
	if err != nil {
		return nil, err
	}
	if policy.IsSharedWith(shared.UserIDs(), newUserID) {
		return nil, Conflict("budget is already shared with this user")
	}

	if err := s.repo.AddUserToBudget(ctx, &models.BudgetUser{BudgetID: budgetID, UserID: newUserID}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("budget is already shared with this user")
		}
		return nil, Internal("error sharing budget", err)
	}

	s.logger.Info("budget shared", utils.FieldBudgetID, budgetID, utils.FieldUserID, newUserID)
	shared.Users = append(shared.Users, *user)
	return shared, nil
}

func (s *DefaultService) RemoveBudgetUser(ctx context.Context, ownerID, budgetID, userID string) (*models.BudgetWithUsers, error) {
	budget, err := s.getBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if !policy.OwnsBudget(budget, ownerID) {
		return nil, Forbidden("only the owner can change who this budget is shared with")
	}

	removed, err := s.repo.RemoveUserFromBudget(ctx, budgetID, userID)
	if err != nil {
		return nil, Internal("error removing user from budget", err)
	}
	if !removed {
		return nil, NotFound("budget is not shared with this user")
	}

	s.logger.Info("budget unshared", utils.FieldBudgetID, budgetID, utils.FieldUserID, userID)
	return s.withUsers(ctx, *budget)
}

// GetBudgetTransactions returns the budget's transactions matching opts.
// The date range covers whole days on both ends.
func (s *DefaultService) GetBudgetTransactions(
	ctx context.Context,
	p models.Principal,
	budgetID string,
	opts models.SearchOptions,
) ([]models.Transaction, error) {
	if _, err := s.readableBudget(ctx, p, budgetID); err != nil {
		return nil, err
	}
	return s.searchTransactions(ctx, budgetID, opts)
}

func (s *DefaultService) searchTransactions(ctx context.Context, budgetID string, opts models.SearchOptions) ([]models.Transaction, error) {
	query := repository.TransactionQuery{
		BudgetID:     budgetID,
		Type:         opts.Type,
		CategoryName: normalizeName(opts.Category),
	}
	if opts.DateRange != nil {
		start, end := opts.DateRange.Bounds()
		query.Start = &start
		query.End = &end
	}

	txs, err := s.repo.ListTransactions(ctx, query)
	if err != nil {
		return nil, Internal("error listing transactions", err)
	}
	return txs, nil
}

func (s *DefaultService) ListUserBudgets(ctx context.Context, userID string) ([]models.BudgetWithUsers, error) {
	budgets, err := s.repo.ListUserBudgets(ctx, userID)
	if err != nil {
		return nil, Internal("error listing budgets", err)
	}
	return s.listWithUsers(ctx, budgets)
}

func (s *DefaultService) ListOwnedBudgets(ctx context.Context, userID string) ([]models.BudgetWithUsers, error) {
	budgets, err := s.repo.ListOwnedBudgets(ctx, userID)
	if err != nil {
		return nil, Internal("error listing owned budgets", err)
	}
	return s.listWithUsers(ctx, budgets)
}

func (s *DefaultService) ListSharedBudgets(ctx context.Context, userID string) ([]models.BudgetWithUsers, error) {
	budgets, err := s.repo.ListSharedBudgets(ctx, userID)
	if err != nil {
		return nil, Internal("error listing shared budgets", err)
	}
	return s.listWithUsers(ctx, budgets)
}

// Helper methods
func (s *DefaultService) getBudget(ctx context.Context, budgetID string) (*models.Budget, error) {
	budget, err := s.repo.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, Internal("error getting budget", err)
	}
	if budget == nil {
		return nil, NotFound("budget not found")
	}
	return budget, nil
}

// readableBudget loads a budget with its shared users and applies the read rule
func (s *DefaultService) readableBudget(ctx context.Context, p models.Principal, budgetID string) (*models.BudgetWithUsers, error) {
	budget, err := s.getBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	withUsers, err := s.withUsers(ctx, *budget)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadBudget(budget, withUsers.UserIDs(), p) {
		return nil, Forbidden("you don't have access to this budget")
	}
	return withUsers, nil
}

func (s *DefaultService) withUsers(ctx context.Context, budget models.Budget) (*models.BudgetWithUsers, error) {
	users, err := s.repo.GetBudgetUsers(ctx, budget.ID)
	if err != nil {
		return nil, Internal("error getting budget users", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return &models.BudgetWithUsers{Budget: budget, Users: users}, nil
}

// listWithUsers resolves the shared users of every budget concurrently,
// keeping the input order
func (s *DefaultService) listWithUsers(ctx context.Context, budgets []models.Budget) ([]models.BudgetWithUsers, error) {
	result := make([]models.BudgetWithUsers, len(budgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sharedUsersFanOut)
	for i := range budgets {
		i := i
		g.Go(func() error {
			b, err := s.withUsers(gctx, budgets[i])
			if err != nil {
				return err
			}
			result[i] = *b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
