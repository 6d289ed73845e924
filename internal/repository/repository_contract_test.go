package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rongwang/budget-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUser(t *testing.T, repo Repository, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, Password: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func mustCategory(t *testing.T, repo Repository, name string, txType models.TransactionType, owner *string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, IsDefault: owner == nil, TransactionType: txType, UserID: owner}
	require.NoError(t, repo.CreateCategory(context.Background(), c))
	return c
}

func mustTransaction(t *testing.T, repo Repository, userID, budgetID string, categoryID *string, amount, date string) *models.Transaction {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	tx := &models.Transaction{
		Type:       models.TransactionTypeExpense,
		Amount:     decimal.RequireFromString(amount),
		Date:       d,
		UserID:     userID,
		CategoryID: categoryID,
		BudgetID:   budgetID,
	}
	require.NoError(t, repo.CreateTransaction(context.Background(), tx))
	return tx
}

// runRepositoryContract checks the behavior both stores must share: unique
// keys, foreign-key policies and unit-of-work rollback.
func runRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()

	alice := mustUser(t, repo, "alice@example.com")
	bob := mustUser(t, repo, "bob@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.CreateUser(ctx, &models.User{Email: alice.Email, Name: "x", Password: "x"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	home := &models.Budget{Name: "home", OwnerID: alice.ID}
	require.NoError(t, repo.CreateBudget(ctx, home))

	t.Run("duplicate budget name per owner", func(t *testing.T) {
		assert.ErrorIs(t, repo.CreateBudget(ctx, &models.Budget{Name: "home", OwnerID: alice.ID}), ErrDuplicate)
		other := &models.Budget{Name: "home", OwnerID: bob.ID}
		require.NoError(t, repo.CreateBudget(ctx, other))
		require.NoError(t, repo.DeleteBudget(ctx, other.ID))
	})

	t.Run("sharing", func(t *testing.T) {
		require.NoError(t, repo.AddUserToBudget(ctx, &models.BudgetUser{BudgetID: home.ID, UserID: bob.ID}))
		assert.ErrorIs(t, repo.AddUserToBudget(ctx, &models.BudgetUser{BudgetID: home.ID, UserID: bob.ID}), ErrDuplicate)

		shared, err := repo.ListSharedBudgets(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, shared, 1)
		assert.Equal(t, home.ID, shared[0].ID)

		all, err := repo.ListUserBudgets(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	food := mustCategory(t, repo, "food", models.TransactionTypeExpense, nil)

	t.Run("transactions round trip", func(t *testing.T) {
		tx := mustTransaction(t, repo, alice.ID, home.ID, &food.ID, "12.34", "2024-02-29")

		got, err := repo.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "12.34", got.Amount.StringFixed(2))
		assert.Equal(t, "2024-02-29", got.Date.Format("2006-01-02"))
		require.NotNil(t, got.CategoryName)
		assert.Equal(t, "food", *got.CategoryName)

		start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)
		found, err := repo.ListTransactions(ctx, TransactionQuery{
			BudgetID:     home.ID,
			CategoryName: "food",
			Start:        &start,
			End:          &end,
		})
		require.NoError(t, err)
		assert.Len(t, found, 1)

		missing, err := repo.GetTransaction(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("deleting a category detaches its transactions", func(t *testing.T) {
		snacks := mustCategory(t, repo, "snacks", models.TransactionTypeExpense, nil)
		tx := mustTransaction(t, repo, alice.ID, home.ID, &snacks.ID, "3.50", "2024-03-01")

		deleted, err := repo.DeleteCategory(ctx, snacks.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		got, err := repo.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID)
		assert.Nil(t, got.CategoryName)
	})

	t.Run("owner of custom categories cannot be deleted", func(t *testing.T) {
		carol := mustUser(t, repo, "carol@example.com")
		custom := mustCategory(t, repo, "hobby", models.TransactionTypeExpense, &carol.ID)

		assert.ErrorIs(t, repo.DeleteUser(ctx, carol.ID), ErrReferenced)

		_, err := repo.DeleteCategory(ctx, custom.ID)
		require.NoError(t, err)
		require.NoError(t, repo.DeleteUser(ctx, carol.ID))
	})

	t.Run("rollback leaves nothing behind", func(t *testing.T) {
		hobby := mustCategory(t, repo, "games", models.TransactionTypeExpense, &bob.ID)
		tx := mustTransaction(t, repo, bob.ID, home.ID, &hobby.ID, "20.00", "2024-03-02")

		boom := errors.New("boom")
		var merged *models.Category
		err := repo.WithTx(ctx, func(r Repository) error {
			merged = &models.Category{Name: "games", IsDefault: true, TransactionType: models.TransactionTypeExpense}
			if err := r.CreateCategory(ctx, merged); err != nil {
				return err
			}
			if _, err := r.ReassignCategory(ctx, hobby.ID, merged.ID); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		gone, err := repo.GetCategory(ctx, merged.ID, models.DefaultScope())
		require.NoError(t, err)
		assert.Nil(t, gone)

		got, err := repo.GetTransaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, hobby.ID, *got.CategoryID)
	})

	t.Run("deleting a budget cascades", func(t *testing.T) {
		require.NoError(t, repo.DeleteBudget(ctx, home.ID))

		txs, err := repo.ListTransactions(ctx, TransactionQuery{BudgetID: home.ID})
		require.NoError(t, err)
		assert.Empty(t, txs)

		users, err := repo.GetBudgetUsers(ctx, home.ID)
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}
