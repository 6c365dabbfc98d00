package sheets

import (
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func budgetFixture() *report.BudgetSummary {
	food := 500.0
	rent := 1000.0
	return &report.BudgetSummary{
		Month: "202401",
		Start: "2024-01-01",
		End:   "2024-01-31",
		Lines: []model.BudgetLine{
			{CategoryID: 1, CategoryName: "Food", BudgetAmount: &food, ActualSpent: 300.10, Variance: 199.90},
			{CategoryID: 2, CategoryName: "Fuel", ActualSpent: 40},
			{CategoryID: 3, CategoryName: "Rent", BudgetAmount: &rent, ActualSpent: 1000, Variance: 0},
		},
	}
}

func TestNewBudgetTab(t *testing.T) {
	tab := NewBudgetTab(budgetFixture())

	assert.Equal(t, "Budget 202401", tab.Title)
	require.Len(t, tab.Rows, 3)
	assert.Nil(t, tab.Rows[1].Budget)
	assert.Equal(t, "1500", tab.TotalBudget.String())
	assert.Equal(t, "1340.1", tab.TotalSpent.String())
	assert.Equal(t, "199.9", tab.TotalVariance.String())
}

func TestBudgetTabValues(t *testing.T) {
	values := NewBudgetTab(budgetFixture()).Values()

	require.Len(t, values, 7)
	assert.Equal(t, []any{"Budget", "202401", "2024-01-01 to 2024-01-31"}, values[0])
	assert.Empty(t, values[1])
	assert.Equal(t, []any{"Category", "Budget", "Spent", "Variance"}, values[2])
	assert.Equal(t, []any{"Food", 500.0, 300.1, 199.9}, values[3])
	assert.Equal(t, []any{"Fuel", "", 40.0, 0.0}, values[4])
	assert.Equal(t, []any{"Total", 1500.0, 1340.1, 199.9}, values[6])
}
