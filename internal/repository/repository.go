package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rongwang/budget-server/internal/models"
)

var (
	// ErrDuplicate is returned when a write would violate a uniqueness constraint
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrReferenced is returned when a row cannot be deleted because other rows still reference it
	ErrReferenced = errors.New("repository: row is still referenced")
)

// CategoryQuery selects categories of one type from the default set, one
// user's custom set, or both.
type CategoryQuery struct {
	IncludeDefaults bool
	OwnerID         string
	Type            *models.TransactionType
}

// TransactionQuery filters transactions. Zero fields are ignored; Start and
// End are compared as-is, callers widen calendar days beforehand.
type TransactionQuery struct {
	BudgetID     string
	UserID       string
	Type         *models.TransactionType
	CategoryID   string
	CategoryName string
	Start        *time.Time
	End          *time.Time
}

// Repository interface defines the methods that any repository implementation must satisfy.
// Lookups return (nil, nil) when no row matches.
type Repository interface {
	// WithTx runs fn inside a single unit of work. The repository handed to
	// fn must be used for every call that belongs to the unit.
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	DeleteUser(ctx context.Context, id string) error

	// Budget operations
	CreateBudget(ctx context.Context, budget *models.Budget) error
	GetBudget(ctx context.Context, budgetID string) (*models.Budget, error)
	GetBudgetByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Budget, error)
	UpdateBudgetName(ctx context.Context, budgetID, name string) error
	DeleteBudget(ctx context.Context, budgetID string) error
	ListOwnedBudgets(ctx context.Context, userID string) ([]models.Budget, error)
	ListSharedBudgets(ctx context.Context, userID string) ([]models.Budget, error)
	ListUserBudgets(ctx context.Context, userID string) ([]models.Budget, error)

	// Budget sharing operations
	AddUserToBudget(ctx context.Context, budgetUser *models.BudgetUser) error
	RemoveUserFromBudget(ctx context.Context, budgetID, userID string) (bool, error)
	GetBudgetUsers(ctx context.Context, budgetID string) ([]models.User, error)

	// Category operations
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string, scope models.CategoryScope) (*models.Category, error)
	FindCategoryByName(ctx context.Context, name string, txType models.TransactionType, scope models.CategoryScope) (*models.Category, error)
	ListCategories(ctx context.Context, query CategoryQuery) ([]models.Category, error)
	ListCustomCategoriesByName(ctx context.Context, name string, txType models.TransactionType) ([]models.Category, error)
	CountCustomCategories(ctx context.Context, userID string) (int, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) (bool, error)

	// Transaction operations
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) (bool, error)
	ListTransactions(ctx context.Context, query TransactionQuery) ([]models.Transaction, error)
	ReassignCategory(ctx context.Context, fromID, toID string) (int64, error)
}
