package api_test

import (
	"net/http"
	"testing"

	"github.com/rongwang/budget-server/internal/api/testutils"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func createBudget(t *testing.T, testCtx *testutils.TestContext, token, name string) models.BudgetWithUsers {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/budgets",
		models.CreateBudgetRequest{Name: name},
		testutils.AuthHeaders(token),
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.BudgetResponse
	testutils.DecodeJSON(t, w, &resp)
	return resp.Budget
}

func createCategory(t *testing.T, testCtx *testutils.TestContext, token, scope, name string, txType models.TransactionType) models.Category {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/categories/"+scope,
		models.CreateCategoryRequest{Name: name, TransactionType: txType},
		testutils.AuthHeaders(token),
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.CategoryResponse
	testutils.DecodeJSON(t, w, &resp)
	return resp.Category
}

func createTransaction(
	t *testing.T,
	testCtx *testutils.TestContext,
	token, budgetID, categoryID string,
	txType models.TransactionType,
	amount, date string,
) models.Transaction {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/transactions",
		models.CreateTransactionRequest{
			BudgetID:   budgetID,
			CategoryID: categoryID,
			Type:       txType,
			Amount:     decimal.RequireFromString(amount),
			Date:       date,
		},
		testutils.AuthHeaders(token),
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.TransactionResponse
	testutils.DecodeJSON(t, w, &resp)
	return resp.Transaction
}
