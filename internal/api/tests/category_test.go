package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rongwang/budget-server/internal/api/testutils"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCategoriesAreAdminOnly(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, adminJWT := testCtx.CreateUser(t, "admin@example.com", "Password123", models.RoleAdmin)
	userAuth := testutils.AuthHeaders(testCtx.TestUserJWT)
	adminAuth := testutils.AuthHeaders(adminJWT)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/categories/default",
		models.CreateCategoryRequest{Name: "food", TransactionType: models.TransactionTypeExpense}, userAuth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	food := createCategory(t, testCtx, adminJWT, "default", "Food", models.TransactionTypeExpense)
	assert.Equal(t, "food", food.Name)
	assert.True(t, food.IsDefault)

	name := "groceries"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPatch,
		fmt.Sprintf("/api/categories/default/%s", food.ID), models.EditCategoryRequest{Name: &name}, userAuth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPatch,
		fmt.Sprintf("/api/categories/default/%s", food.ID), models.EditCategoryRequest{Name: &name}, adminAuth)
	require.Equal(t, http.StatusOK, w.Code)

	// Empty patch
	w = testutils.PerformRequest(testCtx.Router, http.MethodPatch,
		fmt.Sprintf("/api/categories/default/%s", food.ID), models.EditCategoryRequest{}, adminAuth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Invalid type
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/categories/default",
		map[string]string{"name": "x", "transactionType": "transfer"}, adminAuth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/categories/default?type=expense", nil, userAuth)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.CategoryListResponse
	testutils.DecodeJSON(t, w, &list)
	require.Len(t, list.Categories, 1)
	assert.Equal(t, "groceries", list.Categories[0].Name)

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete,
		fmt.Sprintf("/api/categories/default/%s", food.ID), nil, adminAuth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete,
		fmt.Sprintf("/api/categories/default/%s", food.ID), nil, adminAuth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomCategories(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, otherJWT := testCtx.CreateUser(t, "other@example.com", "Password123", models.RoleUser)
	_, adminJWT := testCtx.CreateUser(t, "admin@example.com", "Password123", models.RoleAdmin)
	userAuth := testutils.AuthHeaders(testCtx.TestUserJWT)

	createCategory(t, testCtx, adminJWT, "default", "salary", models.TransactionTypeIncome)
	groceries := createCategory(t, testCtx, testCtx.TestUserJWT, "custom", "Groceries", models.TransactionTypeExpense)
	assert.False(t, groceries.IsDefault)
	assert.Equal(t, testCtx.TestUserID, *groceries.UserID)

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/categories/custom",
		models.CreateCategoryRequest{Name: " groceries ", TransactionType: models.TransactionTypeExpense}, userAuth)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Another user's custom categories are invisible
	name := "mine now"
	w = testutils.PerformRequest(testCtx.Router, http.MethodPatch,
		fmt.Sprintf("/api/categories/custom/%s", groceries.ID), models.EditCategoryRequest{Name: &name},
		testutils.AuthHeaders(otherJWT))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/categories", nil, userAuth)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.CategoryListResponse
	testutils.DecodeJSON(t, w, &list)
	assert.Len(t, list.Categories, 2)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/categories?type=income", nil, userAuth)
	testutils.DecodeJSON(t, w, &list)
	require.Len(t, list.Categories, 1)
	assert.Equal(t, "salary", list.Categories[0].Name)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/categories/custom", nil, testutils.AuthHeaders(otherJWT))
	testutils.DecodeJSON(t, w, &list)
	assert.Empty(t, list.Categories)

	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete,
		fmt.Sprintf("/api/categories/custom/%s", groceries.ID), nil, userAuth)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultCategoryConsolidation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, otherJWT := testCtx.CreateUser(t, "other@example.com", "Password123", models.RoleUser)
	_, adminJWT := testCtx.CreateUser(t, "admin@example.com", "Password123", models.RoleAdmin)

	mine := createCategory(t, testCtx, testCtx.TestUserJWT, "custom", "food", models.TransactionTypeIncome)
	theirs := createCategory(t, testCtx, otherJWT, "custom", "food", models.TransactionTypeIncome)

	myBudget := createBudget(t, testCtx, testCtx.TestUserJWT, "mine")
	theirBudget := createBudget(t, testCtx, otherJWT, "theirs")
	myTx := createTransaction(t, testCtx, testCtx.TestUserJWT, myBudget.ID, mine.ID, models.TransactionTypeIncome, "10.00", "2024-01-01")
	theirTx := createTransaction(t, testCtx, otherJWT, theirBudget.ID, theirs.ID, models.TransactionTypeIncome, "20.00", "2024-01-01")

	def := createCategory(t, testCtx, adminJWT, "default", "food", models.TransactionTypeIncome)

	for _, c := range []struct {
		token string
		txID  string
	}{{testCtx.TestUserJWT, myTx.ID}, {otherJWT, theirTx.ID}} {
		w := testutils.PerformRequest(testCtx.Router, http.MethodGet,
			fmt.Sprintf("/api/transactions/%s", c.txID), nil, testutils.AuthHeaders(c.token))
		require.Equal(t, http.StatusOK, w.Code)

		var resp models.TransactionResponse
		testutils.DecodeJSON(t, w, &resp)
		assert.Equal(t, def.ID, *resp.Transaction.CategoryID)
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/categories/custom", nil,
		testutils.AuthHeaders(testCtx.TestUserJWT))
	var list models.CategoryListResponse
	testutils.DecodeJSON(t, w, &list)
	assert.Empty(t, list.Categories)
}
