package sheets

import (
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/report"
	"github.com/shopspring/decimal"
)

// BudgetRow is one category line of the Budget tab. Budget is nil when the
// category had no budget for the month.
type BudgetRow struct {
	Budget   *decimal.Decimal
	Category string
	Spent    decimal.Decimal
	Variance decimal.Decimal
}

// BudgetTab holds everything written for one budget month.
type BudgetTab struct {
	Title         string
	Month         string
	Start         string
	End           string
	Rows          []BudgetRow
	TotalBudget   decimal.Decimal
	TotalSpent    decimal.Decimal
	TotalVariance decimal.Decimal
}

// NewBudgetTab converts a budget summary into sheet rows and totals.
// Categories without a budget count toward spent but not toward variance.
func NewBudgetTab(summary *report.BudgetSummary) BudgetTab {
	tab := BudgetTab{
		Title: TabTitle(summary.Month),
		Month: summary.Month,
		Start: summary.Start,
		End:   summary.End,
		Rows:  make([]BudgetRow, 0, len(summary.Lines)),
	}

	for _, line := range summary.Lines {
		row := BudgetRow{
			Category: line.CategoryName,
			Spent:    decimal.NewFromFloat(line.ActualSpent).Round(2),
			Variance: decimal.NewFromFloat(line.Variance).Round(2),
		}
		if line.BudgetAmount != nil {
			b := decimal.NewFromFloat(*line.BudgetAmount).Round(2)
			row.Budget = &b
			tab.TotalBudget = tab.TotalBudget.Add(b)
			tab.TotalVariance = tab.TotalVariance.Add(row.Variance)
		}
		tab.TotalSpent = tab.TotalSpent.Add(row.Spent)
		tab.Rows = append(tab.Rows, row)
	}
	return tab
}

// TabTitle names the sheet tab for a budget month.
func TabTitle(month string) string {
	return fmt.Sprintf("Budget %s", month)
}

// Values renders the tab as a header block, one row per category and a
// totals row. Amounts are written as numbers.
func (t BudgetTab) Values() [][]any {
	values := make([][]any, 0, len(t.Rows)+5)
	values = append(values,
		[]any{"Budget", t.Month, fmt.Sprintf("%s to %s", t.Start, t.End)},
		[]any{},
		[]any{"Category", "Budget", "Spent", "Variance"},
	)
	for _, r := range t.Rows {
		var budget any = ""
		if r.Budget != nil {
			budget = r.Budget.InexactFloat64()
		}
		values = append(values, []any{r.Category, budget, r.Spent.InexactFloat64(), r.Variance.InexactFloat64()})
	}
	values = append(values, []any{
		"Total",
		t.TotalBudget.InexactFloat64(),
		t.TotalSpent.InexactFloat64(),
		t.TotalVariance.InexactFloat64(),
	})
	return values
}
