package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rongwang/budget-server/internal/models"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const transactionSelect = `
	SELECT t.id, t.type, t.amount, t.date, t.comment, t.user_id, t.category_id,
	       c.name AS category_name, t.budget_id, t.created_at, t.updated_at
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id
`

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
	q  sqlx.ExtContext
	tx *sqlx.Tx
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		q:  db,
	}
}

func (r *PostgresRepository) WithTx(ctx context.Context, fn func(repo Repository) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	err = fn(&PostgresRepository{db: r.db, q: tx, tx: tx})
	if err != nil {
		return err
	}

	return tx.Commit()
}

// translateError maps constraint violations onto the repository sentinels
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrReferenced, pqErr.Constraint)
		}
	}
	return err
}

func (r *PostgresRepository) get(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error) {
	err := sqlx.GetContext(ctx, r.q, dest, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Password, user.Role, user.CreatedAt, user.UpdatedAt)

	return translateError(err)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	found, err := r.get(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := r.get(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`,
		role, time.Now().UTC(), id)
	return err
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return translateError(err)
}

// Budget repository methods
func (r *PostgresRepository) CreateBudget(ctx context.Context, budget *models.Budget) error {
	query := `
		INSERT INTO budgets (id, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	budget.CreatedAt = now
	budget.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, query,
		budget.ID, budget.Name, budget.OwnerID, budget.CreatedAt, budget.UpdatedAt)

	return translateError(err)
}

func (r *PostgresRepository) GetBudget(ctx context.Context, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	found, err := r.get(ctx, &budget, `SELECT * FROM budgets WHERE id = $1`, budgetID)
	if err != nil || !found {
		return nil, err
	}
	return &budget, nil
}

func (r *PostgresRepository) GetBudgetByOwnerAndName(ctx context.Context, ownerID, name string) (*models.Budget, error) {
	var budget models.Budget
	found, err := r.get(ctx, &budget,
		`SELECT * FROM budgets WHERE owner_id = $1 AND name = $2`, ownerID, name)
	if err != nil || !found {
		return nil, err
	}
	return &budget, nil
}

func (r *PostgresRepository) UpdateBudgetName(ctx context.Context, budgetID, name string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE budgets SET name = $1, updated_at = $2 WHERE id = $3`,
		name, time.Now().UTC(), budgetID)
	return translateError(err)
}

// DeleteBudget removes the budget; budget_users and transactions follow through ON DELETE CASCADE
func (r *PostgresRepository) DeleteBudget(ctx context.Context, budgetID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, budgetID)
	return err
}

func (r *PostgresRepository) ListOwnedBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	query := `SELECT * FROM budgets WHERE owner_id = $1 ORDER BY created_at, id`

	budgets := []models.Budget{}
	if err := sqlx.SelectContext(ctx, r.q, &budgets, query, userID); err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *PostgresRepository) ListSharedBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	query := `
		SELECT b.* FROM budgets b
		JOIN budget_users bu ON b.id = bu.budget_id
		WHERE bu.user_id = $1 AND b.owner_id <> $1
		ORDER BY b.created_at, b.id
	`

	budgets := []models.Budget{}
	if err := sqlx.SelectContext(ctx, r.q, &budgets, query, userID); err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *PostgresRepository) ListUserBudgets(ctx context.Context, userID string) ([]models.Budget, error) {
	query := `
		SELECT b.* FROM budgets b
		LEFT JOIN budget_users bu ON b.id = bu.budget_id AND bu.user_id = $1
		WHERE b.owner_id = $1 OR bu.user_id IS NOT NULL
		ORDER BY b.created_at, b.id
	`

	budgets := []models.Budget{}
	if err := sqlx.SelectContext(ctx, r.q, &budgets, query, userID); err != nil {
		return nil, err
	}
	return budgets, nil
}

// Budget sharing repository methods
func (r *PostgresRepository) AddUserToBudget(ctx context.Context, budgetUser *models.BudgetUser) error {
	if budgetUser.CreatedAt.IsZero() {
		budgetUser.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO budget_users (budget_id, user_id, created_at) VALUES ($1, $2, $3)`,
		budgetUser.BudgetID, budgetUser.UserID, budgetUser.CreatedAt)

	return translateError(err)
}

func (r *PostgresRepository) RemoveUserFromBudget(ctx context.Context, budgetID, userID string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM budget_users WHERE budget_id = $1 AND user_id = $2`, budgetID, userID)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *PostgresRepository) GetBudgetUsers(ctx context.Context, budgetID string) ([]models.User, error) {
	query := `
		SELECT u.* FROM users u
		JOIN budget_users bu ON u.id = bu.user_id
		WHERE bu.budget_id = $1
		ORDER BY bu.created_at, u.id
	`

	users := []models.User{}
	if err := sqlx.SelectContext(ctx, r.q, &users, query, budgetID); err != nil {
		return nil, err
	}
	return users, nil
}

// Category repository methods
func (r *PostgresRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (id, name, is_default, transaction_type, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if category.ID == "" {
		category.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, query,
		category.ID, category.Name, category.IsDefault, category.TransactionType,
		category.UserID, category.CreatedAt, category.UpdatedAt)

	return translateError(err)
}

func scopeCondition(scope models.CategoryScope, next int) (string, []interface{}) {
	if scope.Kind == models.ScopeDefault {
		return "is_default AND user_id IS NULL", nil
	}
	return fmt.Sprintf("NOT is_default AND user_id = $%d", next), []interface{}{scope.OwnerID}
}

func (r *PostgresRepository) GetCategory(ctx context.Context, id string, scope models.CategoryScope) (*models.Category, error) {
	cond, scopeArgs := scopeCondition(scope, 2)
	query := `SELECT * FROM categories WHERE id = $1 AND ` + cond

	var category models.Category
	found, err := r.get(ctx, &category, query, append([]interface{}{id}, scopeArgs...)...)
	if err != nil || !found {
		return nil, err
	}
	return &category, nil
}

func (r *PostgresRepository) FindCategoryByName(
	ctx context.Context,
	name string,
	txType models.TransactionType,
	scope models.CategoryScope,
) (*models.Category, error) {
	cond, scopeArgs := scopeCondition(scope, 3)
	query := `SELECT * FROM categories WHERE name = $1 AND transaction_type = $2 AND ` + cond

	var category models.Category
	found, err := r.get(ctx, &category, query, append([]interface{}{name, txType}, scopeArgs...)...)
	if err != nil || !found {
		return nil, err
	}
	return &category, nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context, q CategoryQuery) ([]models.Category, error) {
	categories := []models.Category{}

	var scopes []string
	var args []interface{}
	if q.IncludeDefaults {
		scopes = append(scopes, "is_default")
	}
	if q.OwnerID != "" {
		args = append(args, q.OwnerID)
		scopes = append(scopes, fmt.Sprintf("(NOT is_default AND user_id = $%d)", len(args)))
	}
	if len(scopes) == 0 {
		return categories, nil
	}

	query := `SELECT * FROM categories WHERE (` + strings.Join(scopes, " OR ") + `)`
	if q.Type != nil {
		args = append(args, *q.Type)
		query += fmt.Sprintf(" AND transaction_type = $%d", len(args))
	}
	query += ` ORDER BY is_default DESC, name, id`

	if err := sqlx.SelectContext(ctx, r.q, &categories, query, args...); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PostgresRepository) ListCustomCategoriesByName(
	ctx context.Context,
	name string,
	txType models.TransactionType,
) ([]models.Category, error) {
	query := `
		SELECT * FROM categories
		WHERE name = $1 AND transaction_type = $2 AND NOT is_default
		ORDER BY created_at, id
	`

	categories := []models.Category{}
	if err := sqlx.SelectContext(ctx, r.q, &categories, query, name, txType); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PostgresRepository) CountCustomCategories(ctx context.Context, userID string) (int, error) {
	var count int
	if _, err := r.get(ctx, &count, `SELECT COUNT(*) FROM categories WHERE user_id = $1`, userID); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) UpdateCategory(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()

	_, err := r.q.ExecContext(ctx,
		`UPDATE categories SET name = $1, transaction_type = $2, updated_at = $3 WHERE id = $4`,
		category.Name, category.TransactionType, category.UpdatedAt, category.ID)

	return translateError(err)
}

// DeleteCategory removes the category; referencing transactions are detached by ON DELETE SET NULL
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

// Transaction repository methods
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, type, amount, date, comment, user_id, category_id, budget_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, query,
		tx.ID, tx.Type, tx.Amount, tx.Date, tx.Comment,
		tx.UserID, tx.CategoryID, tx.BudgetID, tx.CreatedAt, tx.UpdatedAt)

	return translateError(err)
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	found, err := r.get(ctx, &tx, transactionSelect+` WHERE t.id = $1`, id)
	if err != nil || !found {
		return nil, err
	}
	return &tx, nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	tx.UpdatedAt = time.Now().UTC()

	_, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET type = $1, amount = $2, date = $3, comment = $4, category_id = $5, updated_at = $6
		WHERE id = $7
	`, tx.Type, tx.Amount, tx.Date, tx.Comment, tx.CategoryID, tx.UpdatedAt, tx.ID)

	return translateError(err)
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, id string) (bool, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.BudgetID != "" {
		add("t.budget_id = $%d", q.BudgetID)
	}
	if q.UserID != "" {
		add("t.user_id = $%d", q.UserID)
	}
	if q.Type != nil {
		add("t.type = $%d", *q.Type)
	}
	if q.CategoryID != "" {
		add("t.category_id = $%d", q.CategoryID)
	}
	if q.CategoryName != "" {
		add("c.name = $%d", q.CategoryName)
	}
	if q.Start != nil {
		add("t.date >= $%d", *q.Start)
	}
	if q.End != nil {
		add("t.date <= $%d", *q.End)
	}

	query := transactionSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.date, t.created_at, t.id"

	txs := []models.Transaction{}
	if err := sqlx.SelectContext(ctx, r.q, &txs, query, args...); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *PostgresRepository) ReassignCategory(ctx context.Context, fromID, toID string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET category_id = $1, updated_at = $2 WHERE category_id = $3`,
		toID, time.Now().UTC(), fromID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
