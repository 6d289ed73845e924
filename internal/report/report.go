// Package report derives balances and filtered views from a budget's
// transactions. It performs no lookups: callers pass transaction slices that
// were already access-checked, and the slices are never modified.
package report

import (
	"time"

	"github.com/rongwang/budget-server/internal/models"
	"github.com/shopspring/decimal"
)

// Data is the aggregate view of a set of transactions
type Data struct {
	Incomes  []models.Transaction
	Expenses []models.Transaction
	Balance  decimal.Decimal
}

// Named pairs a report with the budget it was computed for
type Named struct {
	Name string
	Data
}

// Compute partitions transactions by type and sums incomes minus expenses.
// The running balance is rounded to cents after every addition.
func Compute(transactions []models.Transaction) Data {
	data := Data{
		Incomes:  []models.Transaction{},
		Expenses: []models.Transaction{},
		Balance:  decimal.Zero,
	}

	for _, tx := range transactions {
		amount := tx.Amount
		switch tx.Type {
		case models.TransactionTypeIncome:
			data.Incomes = append(data.Incomes, tx)
		case models.TransactionTypeExpense:
			data.Expenses = append(data.Expenses, tx)
			amount = amount.Neg()
		default:
			continue
		}
		data.Balance = data.Balance.Add(amount).Round(2)
	}

	return data
}

// FilterByRange keeps transactions dated inside the inclusive day range
func FilterByRange(transactions []models.Transaction, r models.DateRange) []models.Transaction {
	return filter(transactions, func(tx models.Transaction) bool {
		return r.Contains(tx.Date)
	})
}

// FilterByMonth keeps transactions from the calendar month and year of reference
func FilterByMonth(transactions []models.Transaction, reference time.Time) []models.Transaction {
	year, month, _ := reference.Date()
	return filter(transactions, func(tx models.Transaction) bool {
		y, m, _ := tx.Date.Date()
		return y == year && m == month
	})
}

func filter(transactions []models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	out := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}
