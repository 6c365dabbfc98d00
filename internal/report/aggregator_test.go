package report

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
}

func TestBudgetSummary(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.BasicCategories)
	ctx := context.Background()

	food := db.MustCategoryID("Food")
	require.NoError(t, db.Storage.SetBudget(ctx, "202402", food, "1000"))
	db.MustTransaction("2024-02-29", "800", model.TypeExpense, &food)
	db.MustTransaction("2024-03-01", "500", model.TypeExpense, &food)

	agg := NewAggregator(db.Storage)
	summary, err := agg.BudgetSummary(ctx, "202402")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", summary.Start)
	assert.Equal(t, "2024-02-29", summary.End)

	var found bool
	for _, line := range summary.Lines {
		if line.CategoryID != food {
			assert.Nil(t, line.BudgetAmount, "%s has no budget", line.CategoryName)
			continue
		}
		found = true
		assert.InDelta(t, 800, line.ActualSpent, 0.001)
		assert.InDelta(t, 200, line.Variance, 0.001)
	}
	assert.True(t, found)
	assert.Len(t, summary.Lines, 7, "every category gets a line")

	_, err = agg.BudgetSummary(ctx, "2024-02")
	assert.True(t, common.IsValidation(err))
}

func TestSummary(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.BasicCategories)
	ctx := context.Background()

	fuel := db.MustCategoryID("Transport/Fuel")
	db.MustTransaction("2024-01-10", "60", model.TypeExpense, &fuel)
	db.MustTransaction("2024-01-11", "40", model.TypeExpense, nil)

	agg := NewAggregator(db.Storage)

	summary, err := agg.Summary(ctx, "01/01/2024", "2024-01-31", "")
	require.NoError(t, err)
	assert.Equal(t, service.GroupByCategory, summary.GroupBy)
	assert.Equal(t, "2024-01-01", summary.Start)
	require.Len(t, summary.Rows, 2)
	assert.Equal(t, "Fuel", *summary.Rows[0].Key)
	assert.Equal(t, "Uncategorized", *summary.Rows[1].Key)

	_, err = agg.Summary(ctx, "2024-01-01", "2024-01-31", "day")
	assert.True(t, common.IsValidation(err))
	_, err = agg.Summary(ctx, "", "2024-01-31", service.GroupByMonth)
	assert.True(t, common.IsValidation(err))
}

func TestGoalProgress(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)
	ctx := context.Background()

	require.NoError(t, db.Storage.SetGoal(ctx, "Emergency", "10000", "2024-12-31"))
	db.MustTransaction("2024-01-15", "5000.10", model.TypeIncome, nil)
	db.MustTransaction("2024-02-15", "1200.05", model.TypeExpense, nil)
	db.MustTransaction("2023-12-31", "9999", model.TypeIncome, nil)
	db.MustTransaction("2024-06-30", "9999", model.TypeIncome, nil)

	agg := NewAggregator(db.Storage)
	agg.Clock = fixedClock(2024, time.June, 1)

	progress, err := agg.GoalProgress(ctx, "Emergency", "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", progress.Start)
	assert.Equal(t, "2024-06-01", progress.End)
	assert.InDelta(t, 3800.05, progress.Saved, 0.0001)
	assert.InDelta(t, 6199.95, progress.Remaining, 0.0001)

	progress, err = agg.GoalProgress(ctx, "Emergency", "2023-12-01", "2024-12-31")
	require.NoError(t, err)
	assert.InDelta(t, 23798.05, progress.Saved, 0.0001)
	assert.InDelta(t, -13798.05, progress.Remaining, 0.0001)

	_, err = agg.GoalProgress(ctx, "Holiday", "", "")
	assert.True(t, common.IsNotFound(err))
}

func TestForecast(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)
	ctx := context.Background()

	// Window for a 2025-01-20 clock starts 2024-07-01.
	db.MustTransaction("2024-06-30", "100000", model.TypeIncome, nil)
	db.MustTransaction("2024-11-05", "300", model.TypeIncome, nil)
	db.MustTransaction("2024-11-06", "200", model.TypeExpense, nil)
	db.MustTransaction("2024-12-24", "50", model.TypeExpense, nil)

	agg := NewAggregator(db.Storage)
	agg.Clock = fixedClock(2025, time.January, 20)

	forecast, err := agg.Forecast(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, forecast.Note)
	require.Len(t, forecast.History, 2)
	assert.Equal(t, "2024-11", forecast.History[0].Month)
	assert.InDelta(t, 100, forecast.History[0].Net, 0.001)
	assert.InDelta(t, -50, forecast.History[1].Net, 0.001)

	assert.Equal(t, []ForecastPoint{
		{Month: "2025-01", Net: 25},
		{Month: "2025-02", Net: 25},
		{Month: "2025-03", Net: 25},
	}, forecast.Forecast)

	forecast, err = agg.Forecast(ctx, 99)
	require.NoError(t, err)
	assert.Len(t, forecast.Forecast, MaxForecastMonths)
}

func TestForecast_NoHistory(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)

	agg := NewAggregator(db.Storage)
	agg.Clock = fixedClock(2025, time.January, 20)

	forecast, err := agg.Forecast(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, NoHistoryNote, forecast.Note)
	assert.Empty(t, forecast.History)
	assert.Empty(t, forecast.Forecast)
}
