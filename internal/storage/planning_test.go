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

func TestSetBudget(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := mustCategory(t, store, "Food", nil)

	require.NoError(t, store.SetBudget(ctx, "202401", food, "1000"))
	require.NoError(t, store.SetBudget(ctx, "202401", food, "1200.50"))

	budgets, err := store.ListBudgets(ctx, "202401")
	require.NoError(t, err)
	require.Len(t, budgets, 1, "setting twice replaces")
	assert.InDelta(t, 1200.50, budgets[0].Amount, 0.001)

	assert.True(t, common.IsValidation(store.SetBudget(ctx, "2024-01", food, "1")))
	assert.True(t, common.IsValidation(store.SetBudget(ctx, "202413", food, "1")))
	assert.True(t, common.IsValidation(store.SetBudget(ctx, "202401", food, "abc")))
	assert.True(t, common.IsNotFound(store.SetBudget(ctx, "202401", 999, "1")))
}

func TestDeleteBudgets(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*SQLiteStorage, int64, int64, func()) {
		t.Helper()
		store, cleanup := createTestStorage(t)
		food := mustCategory(t, store, "Food", nil)
		fuel := mustCategory(t, store, "Fuel", nil)
		for _, month := range []string{"202401", "202402"} {
			require.NoError(t, store.SetBudget(ctx, month, food, "100"))
			require.NoError(t, store.SetBudget(ctx, month, fuel, "50"))
		}
		return store, food, fuel, cleanup
	}

	t.Run("month and category", func(t *testing.T) {
		store, food, _, cleanup := setup(t)
		defer cleanup()

		result, err := store.DeleteBudgets(ctx, service.BudgetFilter{Month: ptr("202401"), CategoryID: &food})
		require.NoError(t, err)
		assert.Equal(t, "month+category", result.Mode)
		assert.Equal(t, int64(1), result.Deleted)
	})

	t.Run("month", func(t *testing.T) {
		store, _, _, cleanup := setup(t)
		defer cleanup()

		result, err := store.DeleteBudgets(ctx, service.BudgetFilter{Month: ptr("202402")})
		require.NoError(t, err)
		assert.Equal(t, "month", result.Mode)
		assert.Equal(t, int64(2), result.Deleted)
	})

	t.Run("category", func(t *testing.T) {
		store, _, fuel, cleanup := setup(t)
		defer cleanup()

		result, err := store.DeleteBudgets(ctx, service.BudgetFilter{CategoryID: &fuel})
		require.NoError(t, err)
		assert.Equal(t, "category", result.Mode)
		assert.Equal(t, int64(2), result.Deleted)
	})

	t.Run("all", func(t *testing.T) {
		store, _, _, cleanup := setup(t)
		defer cleanup()

		result, err := store.DeleteBudgets(ctx, service.BudgetFilter{All: true})
		require.NoError(t, err)
		assert.Equal(t, "all", result.Mode)
		assert.Equal(t, int64(4), result.Deleted)
	})

	t.Run("no mode", func(t *testing.T) {
		store, _, _, cleanup := setup(t)
		defer cleanup()

		_, err := store.DeleteBudgets(ctx, service.BudgetFilter{})
		assert.True(t, common.IsValidation(err))

		budgets, err := store.ListBudgets(ctx, "")
		require.NoError(t, err)
		assert.Len(t, budgets, 4)
	})
}

func TestGoals(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SetGoal(ctx, "Car", "500000", "31/12/2026"))
	require.NoError(t, store.SetGoal(ctx, "Trip", "80000", "2025-06-01"))
	require.NoError(t, store.SetGoal(ctx, "Car", "450000", "2026-12-31"))

	goal, err := store.GetGoal(ctx, "Car")
	require.NoError(t, err)
	assert.InDelta(t, 450000, goal.TargetAmount, 0.001)
	assert.Equal(t, "2026-12-31", goal.TargetDate)

	goals, err := store.ListGoals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "Trip", goals[0].Name, "ordered by target date")

	_, err = store.GetGoal(ctx, "House")
	assert.True(t, common.IsNotFound(err))
	assert.True(t, common.IsValidation(store.SetGoal(ctx, "House", "1", "someday")))

	_, err = store.DeleteGoals(ctx, "", false)
	assert.True(t, common.IsValidation(err))

	n, err := store.DeleteGoals(ctx, "Trip", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.DeleteGoals(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFxRates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SetFxRate(ctx, model.FxRate{Date: "2024-01-01", From: "usd", To: "inr", Rate: 83.1}))
	require.NoError(t, store.SetFxRate(ctx, model.FxRate{Date: "2024-01-01", From: "USD", To: "INR", Rate: 83.2}))
	require.NoError(t, store.SetFxRate(ctx, model.FxRate{Date: "2024-02-01", From: "EUR", To: "INR", Rate: 90}))

	rate, err := store.GetFxRate(ctx, "2024-01-01", "usd", "inr")
	require.NoError(t, err)
	assert.Equal(t, "USD", rate.From)
	assert.InDelta(t, 83.2, rate.Rate, 0.0001)

	rates, err := store.ListFxRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "EUR", rates[0].From, "newest first")

	_, err = store.GetFxRate(ctx, "2024-03-01", "USD", "INR")
	assert.True(t, common.IsNotFound(err))

	err = store.SetFxRate(ctx, model.FxRate{Date: "2024-01-01", From: "USD", To: "INR", Rate: 0})
	assert.True(t, common.IsValidation(err))
	err = store.SetFxRate(ctx, model.FxRate{Date: "2024-01-01", From: "", To: "INR", Rate: 1})
	assert.True(t, common.IsValidation(err))
}
