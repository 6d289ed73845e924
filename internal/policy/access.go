// Package policy holds the access rules for budgets, categories and
// transactions. Every function is a pure predicate; callers turn a false
// result into a forbidden error after establishing that the entity exists.
package policy

import "github.com/rongwang/budget-server/internal/models"

// OwnsBudget reports whether userID is the budget's owner
func OwnsBudget(budget *models.Budget, userID string) bool {
	return budget != nil && budget.OwnerID == userID
}

// IsSharedWith reports whether userID appears in the shared user ids
func IsSharedWith(sharedUserIDs []string, userID string) bool {
	for _, id := range sharedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CanReadBudget: admin, owner, or a user the budget is shared with
func CanReadBudget(budget *models.Budget, sharedUserIDs []string, p models.Principal) bool {
	if budget == nil {
		return false
	}
	return p.IsAdmin() || OwnsBudget(budget, p.UserID) || IsSharedWith(sharedUserIDs, p.UserID)
}

// CanWriteBudget: admin or owner. Sharing never grants write access.
func CanWriteBudget(budget *models.Budget, p models.Principal) bool {
	if budget == nil {
		return false
	}
	return p.IsAdmin() || OwnsBudget(budget, p.UserID)
}

// CanManageCategory: defaults belong to admins, customs to their owner
func CanManageCategory(category *models.Category, p models.Principal) bool {
	if category == nil {
		return false
	}
	scope := category.Scope()
	if scope.Kind == models.ScopeDefault {
		return p.IsAdmin()
	}
	return scope.OwnerID == p.UserID
}

// CanAccessTransaction: the user who recorded it, or an admin
func CanAccessTransaction(tx *models.Transaction, p models.Principal) bool {
	if tx == nil {
		return false
	}
	return p.IsAdmin() || tx.UserID == p.UserID
}
