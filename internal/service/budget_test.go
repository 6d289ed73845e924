package service

import (
	"testing"
	"time"

	"github.com/rongwang/budget-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBudgetNormalizesName(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	bob := f.user(t, "bob@example.com", models.RoleUser)

	b := f.budget(t, alice, "  Trip  ")
	assert.Equal(t, "trip", b.Name)
	assert.Equal(t, alice.UserID, b.OwnerID)
	assert.NotNil(t, b.Users)

	_, err := f.svc.CreateBudget(f.ctx, alice.UserID, "TRIP")
	assertKind(t, KindConflict, err)

	// names are unique per owner only
	_, err = f.svc.CreateBudget(f.ctx, bob.UserID, "trip")
	require.NoError(t, err)

	_, err = f.svc.CreateBudget(f.ctx, alice.UserID, "   ")
	assertKind(t, KindBadRequest, err)
}

func TestGetBudgetAccess(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleUser)
	friend := f.user(t, "friend@example.com", models.RoleUser)
	stranger := f.user(t, "stranger@example.com", models.RoleUser)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)

	b := f.budget(t, owner, "home")
	_, err := f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
	require.NoError(t, err)

	for _, p := range []models.Principal{owner, friend, admin} {
		got, err := f.svc.GetBudget(f.ctx, p, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{friend.UserID}, got.UserIDs())
	}

	_, err = f.svc.GetBudget(f.ctx, stranger, b.ID)
	assertKind(t, KindForbidden, err)

	_, err = f.svc.GetBudget(f.ctx, owner, "missing")
	assertKind(t, KindNotFound, err)
}

func TestAddBudgetUser(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleUser)
	friend := f.user(t, "friend@example.com", models.RoleUser)
	b := f.budget(t, owner, "home")

	t.Run("self share is rejected first", func(t *testing.T) {
		_, err := f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, owner.UserID)
		assertKind(t, KindBadRequest, err)

		_, err = f.svc.AddBudgetUser(f.ctx, owner.UserID, "missing", owner.UserID)
		assertKind(t, KindBadRequest, err)
	})

	t.Run("missing budget", func(t *testing.T) {
		_, err := f.svc.AddBudgetUser(f.ctx, owner.UserID, "missing", friend.UserID)
		assertKind(t, KindNotFound, err)
	})

	t.Run("only the owner shares", func(t *testing.T) {
		_, err := f.svc.AddBudgetUser(f.ctx, friend.UserID, b.ID, "someone")
		assertKind(t, KindForbidden, err)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, "missing")
		assertKind(t, KindNotFound, err)
	})

	t.Run("share then duplicate", func(t *testing.T) {
		got, err := f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
		require.NoError(t, err)
		assert.Equal(t, []string{friend.UserID}, got.UserIDs())

		_, err = f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
		assertKind(t, KindConflict, err)
	})
}

func TestRemoveBudgetUser(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleUser)
	friend := f.user(t, "friend@example.com", models.RoleUser)
	b := f.budget(t, owner, "home")

	_, err := f.svc.RemoveBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
	assertKind(t, KindNotFound, err)

	_, err = f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
	require.NoError(t, err)

	_, err = f.svc.RemoveBudgetUser(f.ctx, friend.UserID, b.ID, friend.UserID)
	assertKind(t, KindForbidden, err)

	got, err := f.svc.RemoveBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
	require.NoError(t, err)
	assert.Empty(t, got.Users)

	_, err = f.svc.GetBudget(f.ctx, friend, b.ID)
	assertKind(t, KindForbidden, err)
}

func TestEditBudgetName(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleUser)
	friend := f.user(t, "friend@example.com", models.RoleUser)
	b := f.budget(t, owner, "home")
	f.budget(t, owner, "work")

	_, err := f.svc.EditBudgetName(f.ctx, owner.UserID, b.ID, " Holiday ")
	require.NoError(t, err)

	got, err := f.svc.GetBudget(f.ctx, owner, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "holiday", got.Name)

	// renaming to the current name is a no-op
	same, err := f.svc.EditBudgetName(f.ctx, owner.UserID, b.ID, "HOLIDAY")
	require.NoError(t, err)
	assert.Equal(t, "holiday", same.Name)

	_, err = f.svc.EditBudgetName(f.ctx, owner.UserID, b.ID, "Work")
	assertKind(t, KindConflict, err)

	_, err = f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
	require.NoError(t, err)
	_, err = f.svc.EditBudgetName(f.ctx, friend.UserID, b.ID, "mine")
	assertKind(t, KindForbidden, err)

	_, err = f.svc.EditBudgetName(f.ctx, owner.UserID, "missing", "x")
	assertKind(t, KindNotFound, err)
}

func TestDeleteBudget(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner@example.com", models.RoleUser)
	friend := f.user(t, "friend@example.com", models.RoleUser)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)

	b := f.budget(t, owner, "home")
	_, err := f.svc.AddBudgetUser(f.ctx, owner.UserID, b.ID, friend.UserID)
	require.NoError(t, err)

	assertKind(t, KindForbidden, f.svc.DeleteBudget(f.ctx, friend, b.ID))
	require.NoError(t, f.svc.DeleteBudget(f.ctx, owner, b.ID))
	assertKind(t, KindNotFound, f.svc.DeleteBudget(f.ctx, owner, b.ID))

	other := f.budget(t, owner, "other")
	require.NoError(t, f.svc.DeleteBudget(f.ctx, admin, other.ID))
}

func TestGetBudgetTransactionsFilters(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	owner := f.user(t, "owner@example.com", models.RoleUser)
	b := f.budget(t, owner, "home")

	salary, err := f.svc.CreateDefaultCategory(f.ctx, admin, "salary", models.TransactionTypeIncome)
	require.NoError(t, err)
	food, err := f.svc.CreateDefaultCategory(f.ctx, admin, "food", models.TransactionTypeExpense)
	require.NoError(t, err)

	f.entry(t, owner, b.ID, salary.ID, models.TransactionTypeIncome, "1000.00", "2024-03-01")
	f.entry(t, owner, b.ID, food.ID, models.TransactionTypeExpense, "12.50", "2024-03-10")
	f.entry(t, owner, b.ID, food.ID, models.TransactionTypeExpense, "7.25", "2024-03-12")
	f.entry(t, owner, b.ID, food.ID, models.TransactionTypeExpense, "3.00", "2024-03-13")

	all, err := f.svc.GetBudgetTransactions(f.ctx, owner, b.ID, models.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	expense := models.TransactionTypeExpense
	ranged, err := f.svc.GetBudgetTransactions(f.ctx, owner, b.ID, models.SearchOptions{
		Type:     &expense,
		Category: " FOOD ",
		DateRange: &models.DateRange{
			Start: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "12.5", ranged[0].Amount.String())
	assert.Equal(t, "food", *ranged[1].CategoryName)

	income := models.TransactionTypeIncome
	incomes, err := f.svc.GetBudgetTransactions(f.ctx, owner, b.ID, models.SearchOptions{Type: &income})
	require.NoError(t, err)
	assert.Len(t, incomes, 1)

	stranger := f.user(t, "stranger@example.com", models.RoleUser)
	_, err = f.svc.GetBudgetTransactions(f.ctx, stranger, b.ID, models.SearchOptions{})
	assertKind(t, KindForbidden, err)
}

func TestListBudgets(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com", models.RoleUser)
	bob := f.user(t, "bob@example.com", models.RoleUser)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)

	home := f.budget(t, alice, "home")
	trip := f.budget(t, bob, "trip")
	f.budget(t, bob, "car")
	_, err := f.svc.AddBudgetUser(f.ctx, bob.UserID, trip.ID, alice.UserID)
	require.NoError(t, err)

	names := func(budgets []models.BudgetWithUsers) []string {
		out := make([]string, 0, len(budgets))
		for _, b := range budgets {
			out = append(out, b.Name)
		}
		return out
	}

	all, err := f.svc.ListUserBudgets(f.ctx, alice.UserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"home", "trip"}, names(all))

	owned, err := f.svc.ListOwnedBudgets(f.ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{home.Name}, names(owned))

	shared, err := f.svc.ListSharedBudgets(f.ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, []string{alice.UserID}, shared[0].UserIDs())

	// no admin override on listings
	adminAll, err := f.svc.ListUserBudgets(f.ctx, admin.UserID)
	require.NoError(t, err)
	assert.Empty(t, adminAll)
}
