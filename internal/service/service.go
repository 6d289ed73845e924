package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/report"
	"github.com/rongwang/budget-server/internal/repository"
	"github.com/rongwang/budget-server/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Users
	GetUser(ctx context.Context, userID string) (*models.User, error)
	DeleteUser(ctx context.Context, p models.Principal, targetID string) error
	PromoteUser(ctx context.Context, email string) (*models.User, error)

	// Budgets
	CreateBudget(ctx context.Context, ownerID, name string) (*models.BudgetWithUsers, error)
	GetBudget(ctx context.Context, p models.Principal, budgetID string) (*models.BudgetWithUsers, error)
	EditBudgetName(ctx context.Context, ownerID, budgetID, name string) (*models.BudgetWithUsers, error)
	DeleteBudget(ctx context.Context, p models.Principal, budgetID string) error
	AddBudgetUser(ctx context.Context, ownerID, budgetID, newUserID string) (*models.BudgetWithUsers, error)
	RemoveBudgetUser(ctx context.Context, ownerID, budgetID, userID string) (*models.BudgetWithUsers, error)
	GetBudgetTransactions(ctx context.Context, p models.Principal, budgetID string, opts models.SearchOptions) ([]models.Transaction, error)
	ListUserBudgets(ctx context.Context, userID string) ([]models.BudgetWithUsers, error)
	ListOwnedBudgets(ctx context.Context, userID string) ([]models.BudgetWithUsers, error)
	ListSharedBudgets(ctx context.Context, userID string) ([]models.BudgetWithUsers, error)

	// Categories
	CreateCustomCategory(ctx context.Context, ownerID, name string, txType models.TransactionType) (*models.Category, error)
	CreateDefaultCategory(ctx context.Context, p models.Principal, name string, txType models.TransactionType) (*models.Category, error)
	ResolveCategoryForTransaction(ctx context.Context, categoryID, userID string) (*models.Category, error)
	EditCustomCategory(ctx context.Context, ownerID, categoryID string, patch models.CategoryPatch) (*models.Category, error)
	EditDefaultCategory(ctx context.Context, p models.Principal, categoryID string, patch models.CategoryPatch) (*models.Category, error)
	DeleteCustomCategory(ctx context.Context, ownerID, categoryID string) error
	DeleteDefaultCategory(ctx context.Context, p models.Principal, categoryID string) error
	ListDefaultCategories(ctx context.Context, txType *models.TransactionType) ([]models.Category, error)
	ListCustomCategories(ctx context.Context, ownerID string, txType *models.TransactionType) ([]models.Category, error)
	ListAvailableCategories(ctx context.Context, userID string, txType *models.TransactionType) ([]models.Category, error)

	// Transactions
	CreateTransaction(ctx context.Context, p models.Principal, input models.NewTransaction) (*models.Transaction, error)
	GetTransaction(ctx context.Context, p models.Principal, transactionID string) (*models.Transaction, error)
	EditTransaction(ctx context.Context, p models.Principal, transactionID string, patch models.TransactionPatch) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, p models.Principal, transactionID string) error
	ListTransactions(ctx context.Context, p models.Principal) ([]models.Transaction, error)

	// Reports
	GetReport(ctx context.Context, p models.Principal, budgetID string, dateRange *models.DateRange) (*report.Named, error)
	GetMonthReport(ctx context.Context, p models.Principal, budgetID string, reference time.Time) (*report.Named, error)
	GetIncomes(ctx context.Context, p models.Principal, budgetID, category string, dateRange *models.DateRange) ([]models.Transaction, error)
	GetExpenses(ctx context.Context, p models.Principal, budgetID, category string, dateRange *models.DateRange) ([]models.Transaction, error)
	GetAllReports(ctx context.Context, p models.Principal, dateRange *models.DateRange) ([]report.Named, error)
	ExportReport(ctx context.Context, p models.Principal, budgetID string, dateRange *models.DateRange, w io.Writer) error
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
	logger        *utils.Logger
}

var _ Service = (*DefaultService)(nil)

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string, tokenDuration time.Duration, logger *utils.Logger) *DefaultService {
	if tokenDuration <= 0 {
		tokenDuration = 24 * time.Hour
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenDuration,
		logger:        logger.WithComponent("service"),
	}
}

// normalizeName trims and lower-cases budget and category names
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, Internal("error checking user existence", err)
	}

	if existingUser != nil {
		return nil, Conflict("user with this email already exists")
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, Internal("error hashing password", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Password: string(hashedPassword),
		Role:     models.RoleUser,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("user with this email already exists")
		}
		return nil, Internal("error creating user", err)
	}

	s.logger.Info("user signed up", utils.FieldUserID, user.ID)

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, Internal("error getting user", err)
	}

	if user == nil {
		return nil, Unauthorized("invalid email or password")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, Unauthorized("invalid email or password")
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, Internal("error generating token", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// User methods
func (s *DefaultService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, Internal("error getting user", err)
	}
	if user == nil {
		return nil, NotFound("user not found")
	}
	return user, nil
}

// DeleteUser removes a user together with their budgets and transactions.
// Users still owning custom categories must delete those first.
func (s *DefaultService) DeleteUser(ctx context.Context, p models.Principal, targetID string) error {
	user, err := s.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return Internal("error getting user", err)
	}
	if user == nil {
		return NotFound("user not found")
	}

	if p.UserID != targetID && !p.IsAdmin() {
		return Forbidden("you don't have permission to delete this user")
	}

	count, err := s.repo.CountCustomCategories(ctx, targetID)
	if err != nil {
		return Internal("error counting custom categories", err)
	}
	if count > 0 {
		return Conflict("user still owns %d custom categories", count)
	}

	if err := s.repo.DeleteUser(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return Conflict("user still owns custom categories")
		}
		return Internal("error deleting user", err)
	}

	s.logger.Info("user deleted", utils.FieldUserID, targetID)
	return nil
}

// PromoteUser grants the admin role to the user with the given email
func (s *DefaultService) PromoteUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, Internal("error getting user", err)
	}
	if user == nil {
		return nil, NotFound("user not found")
	}

	if err := s.repo.UpdateUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return nil, Internal("error updating user role", err)
	}
	user.Role = models.RoleAdmin

	s.logger.Info("user promoted to admin", utils.FieldUserID, user.ID)
	return user, nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  user.ID, // subject
		"role": string(user.Role),
		"exp":  now.Add(s.tokenDuration).Unix(),
		"iat":  now.Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
