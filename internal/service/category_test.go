package service

import (
	"context"
	"testing"

	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCustomCategoryConflicts(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	bob := f.user(t, "bob@example.com", models.RoleUser)

	c, err := f.svc.CreateCustomCategory(f.ctx, alice.UserID, "Groceries", models.TransactionTypeExpense)
	require.NoError(t, err)
	assert.Equal(t, "groceries", c.Name)
	assert.False(t, c.IsDefault)

	_, err = f.svc.CreateCustomCategory(f.ctx, alice.UserID, " groceries ", models.TransactionTypeExpense)
	assertKind(t, KindConflict, err)

	// same name, other type or other owner is fine
	_, err = f.svc.CreateCustomCategory(f.ctx, alice.UserID, "groceries", models.TransactionTypeIncome)
	require.NoError(t, err)
	_, err = f.svc.CreateCustomCategory(f.ctx, bob.UserID, "groceries", models.TransactionTypeExpense)
	require.NoError(t, err)

	_, err = f.svc.CreateDefaultCategory(f.ctx, admin, "rent", models.TransactionTypeExpense)
	require.NoError(t, err)
	_, err = f.svc.CreateCustomCategory(f.ctx, alice.UserID, "Rent", models.TransactionTypeExpense)
	assertKind(t, KindConflict, err)

	_, err = f.svc.CreateCustomCategory(f.ctx, alice.UserID, "misc", models.TransactionType("transfer"))
	assertKind(t, KindBadRequest, err)
}

func TestCreateDefaultCategoryRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)

	_, err := f.svc.CreateDefaultCategory(f.ctx, alice, "food", models.TransactionTypeExpense)
	assertKind(t, KindForbidden, err)

	_, err = f.svc.CreateDefaultCategory(f.ctx, admin, "food", models.TransactionTypeExpense)
	require.NoError(t, err)
	_, err = f.svc.CreateDefaultCategory(f.ctx, admin, " FOOD", models.TransactionTypeExpense)
	assertKind(t, KindConflict, err)
}

func TestCreateDefaultCategoryConsolidatesCustoms(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	a := f.user(t, "a@example.com", models.RoleUser)
	b := f.user(t, "b@example.com", models.RoleUser)

	budgetA := f.budget(t, a, "a")
	budgetB := f.budget(t, b, "b")

	customA, err := f.svc.CreateCustomCategory(f.ctx, a.UserID, "food", models.TransactionTypeIncome)
	require.NoError(t, err)
	customB, err := f.svc.CreateCustomCategory(f.ctx, b.UserID, "Food", models.TransactionTypeIncome)
	require.NoError(t, err)
	expenseA, err := f.svc.CreateCustomCategory(f.ctx, a.UserID, "food", models.TransactionTypeExpense)
	require.NoError(t, err)

	txA1 := f.entry(t, a, budgetA.ID, customA.ID, models.TransactionTypeIncome, "10.00", "2024-01-01")
	txA2 := f.entry(t, a, budgetA.ID, customA.ID, models.TransactionTypeIncome, "20.00", "2024-01-02")
	txB := f.entry(t, b, budgetB.ID, customB.ID, models.TransactionTypeIncome, "30.00", "2024-01-03")
	txExpense := f.entry(t, a, budgetA.ID, expenseA.ID, models.TransactionTypeExpense, "5.00", "2024-01-04")

	def, err := f.svc.CreateDefaultCategory(f.ctx, admin, "food", models.TransactionTypeIncome)
	require.NoError(t, err)
	assert.True(t, def.IsDefault)
	assert.Nil(t, def.UserID)

	for _, id := range []string{txA1.ID, txA2.ID, txB.ID} {
		tx, err := f.repo.GetTransaction(f.ctx, id)
		require.NoError(t, err)
		require.NotNil(t, tx.CategoryID)
		assert.Equal(t, def.ID, *tx.CategoryID)
	}

	_, err = f.svc.ResolveCategoryForTransaction(f.ctx, customA.ID, a.UserID)
	assertKind(t, KindNotFound, err)
	_, err = f.svc.ResolveCategoryForTransaction(f.ctx, customB.ID, b.UserID)
	assertKind(t, KindNotFound, err)

	// the expense custom with the same name is a different category
	untouched, err := f.repo.GetTransaction(f.ctx, txExpense.ID)
	require.NoError(t, err)
	assert.Equal(t, expenseA.ID, *untouched.CategoryID)

	customs, err := f.svc.ListCustomCategories(f.ctx, a.UserID, nil)
	require.NoError(t, err)
	require.Len(t, customs, 1)
	assert.Equal(t, expenseA.ID, customs[0].ID)
}

// vanishingDeletes reports every category delete as affecting no rows
type vanishingDeletes struct {
	repository.Repository
}

func (v vanishingDeletes) WithTx(ctx context.Context, fn func(repo repository.Repository) error) error {
	return v.Repository.WithTx(ctx, func(repo repository.Repository) error {
		return fn(vanishingDeletes{repo})
	})
}

func (v vanishingDeletes) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func TestCreateDefaultCategoryRollsBackOnPartialFailure(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	a := f.user(t, "a@example.com", models.RoleUser)
	budgetA := f.budget(t, a, "a")

	custom, err := f.svc.CreateCustomCategory(f.ctx, a.UserID, "food", models.TransactionTypeIncome)
	require.NoError(t, err)
	tx := f.entry(t, a, budgetA.ID, custom.ID, models.TransactionTypeIncome, "10.00", "2024-01-01")

	svc := NewDefaultService(vanishingDeletes{f.repo}, testSecret, 0, nil)
	_, err = svc.CreateDefaultCategory(f.ctx, admin, "food", models.TransactionTypeIncome)
	assertKind(t, KindInternal, err)

	defaults, err := f.svc.ListDefaultCategories(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, defaults)

	stored, err := f.repo.GetTransaction(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, custom.ID, *stored.CategoryID)

	_, err = f.svc.ResolveCategoryForTransaction(f.ctx, custom.ID, a.UserID)
	require.NoError(t, err)
}

func TestResolveCategoryForTransaction(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	bob := f.user(t, "bob@example.com", models.RoleUser)

	def, err := f.svc.CreateDefaultCategory(f.ctx, admin, "salary", models.TransactionTypeIncome)
	require.NoError(t, err)
	bobs, err := f.svc.CreateCustomCategory(f.ctx, bob.UserID, "gifts", models.TransactionTypeIncome)
	require.NoError(t, err)

	got, err := f.svc.ResolveCategoryForTransaction(f.ctx, def.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, def.ID, got.ID)

	got, err = f.svc.ResolveCategoryForTransaction(f.ctx, bobs.ID, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, bobs.ID, got.ID)

	_, err = f.svc.ResolveCategoryForTransaction(f.ctx, bobs.ID, alice.UserID)
	assertKind(t, KindNotFound, err)

	_, err = f.svc.ResolveCategoryForTransaction(f.ctx, "missing", alice.UserID)
	assertKind(t, KindNotFound, err)
}

func TestEditCategories(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	bob := f.user(t, "bob@example.com", models.RoleUser)

	pets, err := f.svc.CreateCustomCategory(f.ctx, alice.UserID, "pets", models.TransactionTypeExpense)
	require.NoError(t, err)
	_, err = f.svc.CreateCustomCategory(f.ctx, alice.UserID, "kids", models.TransactionTypeExpense)
	require.NoError(t, err)

	name := " Animals "
	edited, err := f.svc.EditCustomCategory(f.ctx, alice.UserID, pets.ID, models.CategoryPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "animals", edited.Name)
	assert.Equal(t, models.TransactionTypeExpense, edited.TransactionType)

	// editing to its own name is not a conflict
	same := "ANIMALS"
	_, err = f.svc.EditCustomCategory(f.ctx, alice.UserID, pets.ID, models.CategoryPatch{Name: &same})
	require.NoError(t, err)

	clash := "kids"
	_, err = f.svc.EditCustomCategory(f.ctx, alice.UserID, pets.ID, models.CategoryPatch{Name: &clash})
	assertKind(t, KindConflict, err)

	_, err = f.svc.EditCustomCategory(f.ctx, bob.UserID, pets.ID, models.CategoryPatch{Name: &name})
	assertKind(t, KindNotFound, err)

	def, err := f.svc.CreateDefaultCategory(f.ctx, admin, "food", models.TransactionTypeExpense)
	require.NoError(t, err)
	_, err = f.svc.EditDefaultCategory(f.ctx, alice, def.ID, models.CategoryPatch{Name: &name})
	assertKind(t, KindForbidden, err)
	_, err = f.svc.EditDefaultCategory(f.ctx, admin, pets.ID, models.CategoryPatch{Name: &name})
	assertKind(t, KindNotFound, err)

	income := models.TransactionTypeIncome
	moved, err := f.svc.EditDefaultCategory(f.ctx, admin, def.ID, models.CategoryPatch{TransactionType: &income})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeIncome, moved.TransactionType)
}

func TestEditCategoryTypeInUse(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	b := f.budget(t, alice, "home")

	pets, err := f.svc.CreateCustomCategory(f.ctx, alice.UserID, "pets", models.TransactionTypeExpense)
	require.NoError(t, err)
	f.entry(t, alice, b.ID, pets.ID, models.TransactionTypeExpense, "9.99", "2024-05-01")

	income := models.TransactionTypeIncome
	_, err = f.svc.EditCustomCategory(f.ctx, alice.UserID, pets.ID, models.CategoryPatch{TransactionType: &income})
	assertKind(t, KindConflict, err)
}

func TestDeleteCategoriesDetachTransactions(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	b := f.budget(t, alice, "home")

	def, err := f.svc.CreateDefaultCategory(f.ctx, admin, "food", models.TransactionTypeExpense)
	require.NoError(t, err)
	pets, err := f.svc.CreateCustomCategory(f.ctx, alice.UserID, "pets", models.TransactionTypeExpense)
	require.NoError(t, err)

	tx1 := f.entry(t, alice, b.ID, def.ID, models.TransactionTypeExpense, "1.00", "2024-05-01")
	tx2 := f.entry(t, alice, b.ID, pets.ID, models.TransactionTypeExpense, "2.00", "2024-05-02")

	assertKind(t, KindForbidden, f.svc.DeleteDefaultCategory(f.ctx, alice, def.ID))
	assertKind(t, KindNotFound, f.svc.DeleteCustomCategory(f.ctx, alice.UserID, def.ID))

	require.NoError(t, f.svc.DeleteDefaultCategory(f.ctx, admin, def.ID))
	require.NoError(t, f.svc.DeleteCustomCategory(f.ctx, alice.UserID, pets.ID))
	assertKind(t, KindNotFound, f.svc.DeleteCustomCategory(f.ctx, alice.UserID, pets.ID))

	for _, id := range []string{tx1.ID, tx2.ID} {
		tx, err := f.svc.GetTransaction(f.ctx, alice, id)
		require.NoError(t, err)
		assert.Nil(t, tx.CategoryID)
		assert.Nil(t, tx.CategoryName)
	}
}

func TestListCategories(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	bob := f.user(t, "bob@example.com", models.RoleUser)

	_, err := f.svc.CreateDefaultCategory(f.ctx, admin, "salary", models.TransactionTypeIncome)
	require.NoError(t, err)
	_, err = f.svc.CreateDefaultCategory(f.ctx, admin, "food", models.TransactionTypeExpense)
	require.NoError(t, err)
	_, err = f.svc.CreateCustomCategory(f.ctx, alice.UserID, "pets", models.TransactionTypeExpense)
	require.NoError(t, err)
	_, err = f.svc.CreateCustomCategory(f.ctx, bob.UserID, "golf", models.TransactionTypeExpense)
	require.NoError(t, err)

	names := func(categories []models.Category) []string {
		out := make([]string, 0, len(categories))
		for _, c := range categories {
			out = append(out, c.Name)
		}
		return out
	}

	defaults, err := f.svc.ListDefaultCategories(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"salary", "food"}, names(defaults))

	expense := models.TransactionTypeExpense
	available, err := f.svc.ListAvailableCategories(f.ctx, alice.UserID, &expense)
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "pets"}, names(available))

	customs, err := f.svc.ListCustomCategories(f.ctx, bob.UserID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"golf"}, names(customs))

	bad := models.TransactionType("other")
	_, err = f.svc.ListDefaultCategories(f.ctx, &bad)
	assertKind(t, KindBadRequest, err)
}
