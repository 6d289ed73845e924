package models

import "github.com/shopspring/decimal"

// Request models
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateBudgetRequest struct {
	Name string `json:"name" binding:"required,max=30"`
}

type EditBudgetRequest struct {
	Name string `json:"name" binding:"required,max=30"`
}

type ShareBudgetRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
}

type CreateCategoryRequest struct {
	Name            string          `json:"name" binding:"required,max=30"`
	TransactionType TransactionType `json:"transactionType" binding:"required,oneof=income expense"`
}

type EditCategoryRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=1,max=30"`
	TransactionType *TransactionType `json:"transactionType" binding:"omitempty,oneof=income expense"`
}

type CreateTransactionRequest struct {
	BudgetID   string          `json:"budgetId" binding:"required,uuid"`
	CategoryID string          `json:"categoryId" binding:"required,uuid"`
	Type       TransactionType `json:"type" binding:"required,oneof=income expense"`
	Amount     decimal.Decimal `json:"amount"`
	Date       string          `json:"date" binding:"required,datetime=2006-01-02"`
	Comment    *string         `json:"comment" binding:"omitempty,max=250"`
}

type EditTransactionRequest struct {
	CategoryID *string          `json:"categoryId" binding:"omitempty,uuid"`
	Type       *TransactionType `json:"type" binding:"omitempty,oneof=income expense"`
	Amount     *decimal.Decimal `json:"amount"`
	Date       *string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Comment    *string          `json:"comment" binding:"omitempty,max=250"`
}

// Service inputs
type CategoryPatch struct {
	Name            *string
	TransactionType *TransactionType
}

type NewTransaction struct {
	BudgetID   string
	CategoryID string
	Type       TransactionType
	Amount     decimal.Decimal
	Date       string
	Comment    *string
}

type TransactionPatch struct {
	CategoryID *string
	Type       *TransactionType
	Amount     *decimal.Decimal
	Date       *string
	Comment    *string
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      Role   `json:"role,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type BudgetResponse struct {
	Status string          `json:"status"`
	Budget BudgetWithUsers `json:"budget"`
}

type BudgetListResponse struct {
	Status  string            `json:"status"`
	Budgets []BudgetWithUsers `json:"budgets"`
}

type CategoryResponse struct {
	Status   string   `json:"status"`
	Category Category `json:"category"`
}

type CategoryListResponse struct {
	Status     string     `json:"status"`
	Categories []Category `json:"categories"`
}

type TransactionResponse struct {
	Status      string      `json:"status"`
	Transaction Transaction `json:"transaction"`
}

type TransactionListResponse struct {
	Status       string        `json:"status"`
	Transactions []Transaction `json:"transactions"`
}

type ReportResponse struct {
	Status   string        `json:"status"`
	Name     string        `json:"name,omitempty"`
	Incomes  []Transaction `json:"incomes"`
	Expenses []Transaction `json:"expenses"`
	Balance  string        `json:"balance"`
}

type ReportListResponse struct {
	Status  string           `json:"status"`
	Reports []ReportResponse `json:"reports"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
