package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/policy"
	"github.com/rongwang/budget-server/internal/repository"
	"github.com/rongwang/budget-server/internal/utils"
)

// CreateCustomCategory adds a category owned by ownerID. A default with the
// same name and type already covers it, so that is a conflict too.
func (s *DefaultService) CreateCustomCategory(
	ctx context.Context,
	ownerID, name string,
	txType models.TransactionType,
) (*models.Category, error) {
	name, err := validCategory(name, txType)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, name, txType, models.DefaultScope(), ""); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name, txType, models.CustomScope(ownerID), ""); err != nil {
		return nil, err
	}

	owner := ownerID
	category := &models.Category{
		ID:              uuid.New().String(),
		Name:            name,
		IsDefault:       false,
		TransactionType: txType,
		UserID:          &owner,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, categoryWriteError("error creating category", err)
	}

	s.logger.Info("custom category created", utils.FieldCategoryID, category.ID, utils.FieldUserID, ownerID)
	return category, nil
}

// CreateDefaultCategory adds a system-wide category and folds every custom
// category with the same name and type into it. The whole operation is one
// unit of work: either all customs are merged or nothing changes.
func (s *DefaultService) CreateDefaultCategory(
	ctx context.Context,
	p models.Principal,
	name string,
	txType models.TransactionType,
) (*models.Category, error) {
	if !policy.CanManageCategory(&models.Category{IsDefault: true}, p) {
		return nil, Forbidden("only admins can manage default categories")
	}

	name, err := validCategory(name, txType)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNameFree(ctx, name, txType, models.DefaultScope(), ""); err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:              uuid.New().String(),
		Name:            name,
		IsDefault:       true,
		TransactionType: txType,
	}

	var merged int
	err = s.repo.WithTx(ctx, func(repo repository.Repository) error {
		if err := repo.CreateCategory(ctx, category); err != nil {
			return err
		}

		customs, err := repo.ListCustomCategoriesByName(ctx, name, txType)
		if err != nil {
			return fmt.Errorf("listing custom categories: %w", err)
		}

		for _, custom := range customs {
			if _, err := repo.ReassignCategory(ctx, custom.ID, category.ID); err != nil {
				return fmt.Errorf("reassigning transactions of %s: %w", custom.ID, err)
			}
			deleted, err := repo.DeleteCategory(ctx, custom.ID)
			if err != nil {
				return fmt.Errorf("deleting custom category %s: %w", custom.ID, err)
			}
			if !deleted {
				return fmt.Errorf("custom category %s disappeared during consolidation", custom.ID)
			}
			merged++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("a default category %q of type %s already exists", name, txType)
		}
		return nil, Internal("error consolidating categories", err)
	}

	s.logger.Info("default category created",
		utils.FieldCategoryID, category.ID,
		"merged_custom_categories", merged,
	)
	return category, nil
}

// ResolveCategoryForTransaction finds a category a user may attach to a
// transaction: a default one, or one of the user's own customs.
func (s *DefaultService) ResolveCategoryForTransaction(ctx context.Context, categoryID, userID string) (*models.Category, error) {
	for _, scope := range []models.CategoryScope{models.DefaultScope(), models.CustomScope(userID)} {
		category, err := s.repo.GetCategory(ctx, categoryID, scope)
		if err != nil {
			return nil, Internal("error getting category", err)
		}
		if category != nil {
			return category, nil
		}
	}
	return nil, NotFound("category not found")
}

func (s *DefaultService) EditCustomCategory(
	ctx context.Context,
	ownerID, categoryID string,
	patch models.CategoryPatch,
) (*models.Category, error) {
	category, err := s.categoryInScope(ctx, categoryID, models.CustomScope(ownerID))
	if err != nil {
		return nil, err
	}
	return s.editCategory(ctx, category, patch)
}

func (s *DefaultService) EditDefaultCategory(
	ctx context.Context,
	p models.Principal,
	categoryID string,
	patch models.CategoryPatch,
) (*models.Category, error) {
	category, err := s.categoryInScope(ctx, categoryID, models.DefaultScope())
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCategory(category, p) {
		return nil, Forbidden("only admins can manage default categories")
	}
	return s.editCategory(ctx, category, patch)
}

func (s *DefaultService) DeleteCustomCategory(ctx context.Context, ownerID, categoryID string) error {
	category, err := s.categoryInScope(ctx, categoryID, models.CustomScope(ownerID))
	if err != nil {
		return err
	}
	return s.deleteCategory(ctx, category)
}

func (s *DefaultService) DeleteDefaultCategory(ctx context.Context, p models.Principal, categoryID string) error {
	category, err := s.categoryInScope(ctx, categoryID, models.DefaultScope())
	if err != nil {
		return err
	}
	if !policy.CanManageCategory(category, p) {
		return Forbidden("only admins can manage default categories")
	}
	return s.deleteCategory(ctx, category)
}

func (s *DefaultService) ListDefaultCategories(ctx context.Context, txType *models.TransactionType) ([]models.Category, error) {
	return s.listCategories(ctx, repository.CategoryQuery{IncludeDefaults: true, Type: txType})
}

func (s *DefaultService) ListCustomCategories(
	ctx context.Context,
	ownerID string,
	txType *models.TransactionType,
) ([]models.Category, error) {
	return s.listCategories(ctx, repository.CategoryQuery{OwnerID: ownerID, Type: txType})
}

// ListAvailableCategories returns the defaults plus the user's own customs
func (s *DefaultService) ListAvailableCategories(
	ctx context.Context,
	userID string,
	txType *models.TransactionType,
) ([]models.Category, error) {
	return s.listCategories(ctx, repository.CategoryQuery{IncludeDefaults: true, OwnerID: userID, Type: txType})
}

// Helper methods
func validCategory(name string, txType models.TransactionType) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", BadRequest("category name must not be empty")
	}
	if !txType.Valid() {
		return "", BadRequest("transaction type must be income or expense")
	}
	return name, nil
}

// ensureNameFree fails with Conflict when scope already holds (name, type)
// under an id other than exceptID
func (s *DefaultService) ensureNameFree(
	ctx context.Context,
	name string,
	txType models.TransactionType,
	scope models.CategoryScope,
	exceptID string,
) error {
	existing, err := s.repo.FindCategoryByName(ctx, name, txType, scope)
	if err != nil {
		return Internal("error checking category name", err)
	}
	if existing == nil || existing.ID == exceptID {
		return nil
	}
	if scope.Kind == models.ScopeDefault {
		return Conflict("a default category %q of type %s already exists", name, txType)
	}
	return Conflict("you already have a category %q of type %s", name, txType)
}

func (s *DefaultService) categoryInScope(ctx context.Context, categoryID string, scope models.CategoryScope) (*models.Category, error) {
	category, err := s.repo.GetCategory(ctx, categoryID, scope)
	if err != nil {
		return nil, Internal("error getting category", err)
	}
	if category == nil {
		return nil, NotFound("category not found")
	}
	return category, nil
}

func (s *DefaultService) editCategory(ctx context.Context, category *models.Category, patch models.CategoryPatch) (*models.Category, error) {
	updated := *category
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.TransactionType != nil {
		updated.TransactionType = *patch.TransactionType
	}

	name, err := validCategory(updated.Name, updated.TransactionType)
	if err != nil {
		return nil, err
	}
	updated.Name = name

	if updated.Name == category.Name && updated.TransactionType == category.TransactionType {
		return category, nil
	}

	if err := s.ensureNameFree(ctx, updated.Name, updated.TransactionType, category.Scope(), category.ID); err != nil {
		return nil, err
	}

	// Entries keep their own type, so a used category cannot switch type.
	if updated.TransactionType != category.TransactionType {
		used, err := s.repo.ListTransactions(ctx, repository.TransactionQuery{CategoryID: category.ID})
		if err != nil {
			return nil, Internal("error checking category usage", err)
		}
		if len(used) > 0 {
			return nil, Conflict("category is used by %d transactions and cannot change type", len(used))
		}
	}

	if err := s.repo.UpdateCategory(ctx, &updated); err != nil {
		return nil, categoryWriteError("error updating category", err)
	}

	s.logger.Info("category updated", utils.FieldCategoryID, updated.ID)
	return &updated, nil
}

func (s *DefaultService) deleteCategory(ctx context.Context, category *models.Category) error {
	deleted, err := s.repo.DeleteCategory(ctx, category.ID)
	if err != nil {
		return Internal("error deleting category", err)
	}
	if !deleted {
		return NotFound("category not found")
	}

	s.logger.Info("category deleted", utils.FieldCategoryID, category.ID)
	return nil
}

func (s *DefaultService) listCategories(ctx context.Context, query repository.CategoryQuery) ([]models.Category, error) {
	if query.Type != nil && !query.Type.Valid() {
		return nil, BadRequest("transaction type must be income or expense")
	}
	categories, err := s.repo.ListCategories(ctx, query)
	if err != nil {
		return nil, Internal("error listing categories", err)
	}
	return categories, nil
}

func categoryWriteError(message string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return Conflict("a category with this name and type already exists")
	case errors.Is(err, repository.ErrReferenced):
		return NotFound("user not found")
	default:
		return Internal(message, err)
	}
}
