package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetRows(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := mustCategory(t, store, "Food", nil)
	fuel := mustCategory(t, store, "Fuel", nil)
	require.NoError(t, store.SetBudget(ctx, "202401", food, "1000"))
	require.NoError(t, store.SetBudget(ctx, "202402", fuel, "999"))

	mustTransaction(t, store, service.TransactionInput{Date: "2024-01-05", Amount: "500", Splits: []service.SplitInput{split(&food, "500")}})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-01-31", Amount: "300", Splits: []service.SplitInput{split(&food, "300")}})
	// Outside the month and not an expense: neither counts.
	mustTransaction(t, store, service.TransactionInput{Date: "2024-02-01", Amount: "700", Splits: []service.SplitInput{split(&food, "700")}})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-01-10", Amount: "50", Type: "income", Splits: []service.SplitInput{split(&food, "50")}})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-01-10", Amount: "40", Splits: []service.SplitInput{split(&fuel, "40")}})

	lines, err := store.BudgetRows(ctx, "202401", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "Food", lines[0].CategoryName)
	require.NotNil(t, lines[0].BudgetAmount)
	assert.InDelta(t, 1000, *lines[0].BudgetAmount, 0.001)
	assert.InDelta(t, 800, lines[0].ActualSpent, 0.001)
	assert.InDelta(t, 200, lines[0].Variance, 0.001)

	assert.Equal(t, "Fuel", lines[1].CategoryName)
	assert.Nil(t, lines[1].BudgetAmount, "other months' budgets do not leak")
	assert.InDelta(t, 40, lines[1].ActualSpent, 0.001)
	assert.InDelta(t, -40, lines[1].Variance, 0.001)
}

func TestSummaryRows(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := mustCategory(t, store, "Food", nil)
	// Splits are the source of truth even when they disagree with the gross amount.
	mustTransaction(t, store, service.TransactionInput{
		Date: "2024-01-05", Amount: "100", Merchant: "Market",
		Splits: []service.SplitInput{split(&food, "90"), split(&food, "60")},
	})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-02-05", Amount: "20", Merchant: "Kiosk"})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-02-06", Amount: "1000", Type: "income", Merchant: "Employer"})

	byCategory, err := store.SummaryRows(ctx, "2024-01-01", "2024-12-31", service.GroupByCategory)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	assert.Equal(t, "Uncategorized", *byCategory[0].Key)
	assert.InDelta(t, 1020, byCategory[0].Total, 0.001)
	assert.Equal(t, "Food", *byCategory[1].Key)
	assert.InDelta(t, 150, byCategory[1].Total, 0.001)

	byMonth, err := store.SummaryRows(ctx, "2024-01-01", "2024-12-31", service.GroupByMonth)
	require.NoError(t, err)
	require.Len(t, byMonth, 2)
	assert.Equal(t, "2024-01", *byMonth[0].Key)
	assert.Equal(t, "2024-02", *byMonth[1].Key)

	byType, err := store.SummaryRows(ctx, "2024-02-01", "2024-02-28", service.GroupByType)
	require.NoError(t, err)
	require.Len(t, byType, 2)
	assert.Equal(t, string(model.TypeIncome), *byType[0].Key)

	byAccount, err := store.SummaryRows(ctx, "2024-01-01", "2024-12-31", service.GroupByAccount)
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Nil(t, byAccount[0].Key)

	_, err = store.SummaryRows(ctx, "2024-01-01", "2024-12-31", "weekday")
	assert.True(t, common.IsValidation(err))
}

func TestTypeTotalsAndMonthlyNets(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	mustTransaction(t, store, service.TransactionInput{Date: "2024-01-05", Amount: "1000", Type: "income"})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-01-06", Amount: "400"})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-01-07", Amount: "25", Type: "transfer"})
	mustTransaction(t, store, service.TransactionInput{Date: "2024-03-06", Amount: "150"})

	income, expense, err := store.TypeTotals(ctx, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.InDelta(t, 1000, income, 0.001)
	assert.InDelta(t, 400, expense, 0.001)

	income, expense, err = store.TypeTotals(ctx, "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Zero(t, income)
	assert.Zero(t, expense)

	nets, err := store.MonthlyNets(ctx, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, nets, 2, "months without transactions are absent")
	assert.Equal(t, model.MonthlyNet{Month: "2024-01", Income: 1000, Expense: 400, Net: 600}, nets[0])
	assert.Equal(t, "2024-03", nets[1].Month)
	assert.InDelta(t, -150, nets[1].Net, 0.001)
}
