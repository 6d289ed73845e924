package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the authorization role carried by a user and its tokens
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// TransactionType classifies both ledger entries and categories
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Principal is the authenticated caller of an operation
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// User represents a user in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Budget is a named container of transactions owned by one user
type Budget struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	OwnerID   string    `db:"owner_id" json:"ownerId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// BudgetWithUsers is a budget together with the users it is shared with
type BudgetWithUsers struct {
	Budget
	Users []User `json:"users"`
}

// UserIDs returns the ids of the users the budget is shared with
func (b *BudgetWithUsers) UserIDs() []string {
	ids := make([]string, 0, len(b.Users))
	for _, u := range b.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

// BudgetUser represents the relationship between users and budgets (for sharing)
type BudgetUser struct {
	BudgetID  string    `db:"budget_id" json:"budgetId"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Category groups transactions of a single type. Default categories have no
// owner; custom categories always have one.
type Category struct {
	ID              string          `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	IsDefault       bool            `db:"is_default" json:"isDefault"`
	TransactionType TransactionType `db:"transaction_type" json:"transactionType"`
	UserID          *string         `db:"user_id" json:"userId,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// Scope returns the scope the category lives in
func (c *Category) Scope() CategoryScope {
	if c.IsDefault || c.UserID == nil {
		return DefaultScope()
	}
	return CustomScope(*c.UserID)
}

// ScopeKind distinguishes the global default set from a user's custom set
type ScopeKind int

const (
	ScopeDefault ScopeKind = iota
	ScopeCustom
)

// CategoryScope selects where a category lookup is performed
type CategoryScope struct {
	Kind    ScopeKind
	OwnerID string
}

// DefaultScope addresses the system-wide default categories
func DefaultScope() CategoryScope {
	return CategoryScope{Kind: ScopeDefault}
}

// CustomScope addresses the custom categories owned by ownerID
func CustomScope(ownerID string) CategoryScope {
	return CategoryScope{Kind: ScopeCustom, OwnerID: ownerID}
}

// Transaction is a single dated income or expense recorded in a budget
type Transaction struct {
	ID           string          `db:"id" json:"id"`
	Type         TransactionType `db:"type" json:"type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Date         time.Time       `db:"date" json:"date"`
	Comment      *string         `db:"comment" json:"comment"`
	UserID       string          `db:"user_id" json:"userId"`
	CategoryID   *string         `db:"category_id" json:"categoryId"`
	CategoryName *string         `db:"category_name" json:"categoryName,omitempty"`
	BudgetID     string          `db:"budget_id" json:"budgetId"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Bounds widens the range to the first and last millisecond of its days
func (r DateRange) Bounds() (time.Time, time.Time) {
	start := StartOfDay(r.Start)
	end := StartOfDay(r.End).Add(24*time.Hour - time.Millisecond)
	return start, end
}

// Contains reports whether t falls inside the widened range
func (r DateRange) Contains(t time.Time) bool {
	start, end := r.Bounds()
	return !t.Before(start) && !t.After(end)
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SearchOptions filters the transactions of a budget
type SearchOptions struct {
	Type      *TransactionType
	Category  string
	DateRange *DateRange
}
