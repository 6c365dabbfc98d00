// Package report computes budget variance, grouped summaries, goal progress
// and cash-flow forecasts from committed splits.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Aggregator answers reporting queries over a report store.
type Aggregator struct {
	store service.ReportStore
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// NewAggregator creates an aggregator reading from store.
func NewAggregator(store service.ReportStore) *Aggregator {
	return &Aggregator{store: store, Clock: time.Now}
}

func (a *Aggregator) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}

// BudgetSummary is the budget variance of every category for one month.
type BudgetSummary struct {
	Month string             `json:"month_yyyymm"`
	Start string             `json:"start"`
	End   string             `json:"end"`
	Lines []model.BudgetLine `json:"lines"`
}

// BudgetSummary compares each category's budget for month (YYYYMM) with its
// expense splits dated inside that calendar month.
func (a *Aggregator) BudgetSummary(ctx context.Context, month string) (BudgetSummary, error) {
	start, end, err := ledger.MonthBounds(month)
	if err != nil {
		return BudgetSummary{}, err
	}

	lines, err := a.store.BudgetRows(ctx, month, start, end)
	if err != nil {
		return BudgetSummary{}, fmt.Errorf("failed to build budget summary: %w", err)
	}

	return BudgetSummary{Month: month, Start: start, End: end, Lines: lines}, nil
}

// Summary is a grouped total of split amounts over a date range.
type Summary struct {
	Start   string             `json:"start"`
	End     string             `json:"end"`
	GroupBy string             `json:"group_by"`
	Rows    []model.SummaryRow `json:"rows"`
}

// Summary totals split amounts between start and end inclusive, grouped by
// one of the service.GroupBy* keys.
func (a *Aggregator) Summary(ctx context.Context, start, end, groupBy string) (Summary, error) {
	if groupBy == "" {
		groupBy = service.GroupByCategory
	}
	if !validGroupBy(groupBy) {
		return Summary{}, common.Validationf("group_by must be category|month|merchant|account|type")
	}

	s, err := ledger.NormalizeDate(start)
	if err != nil {
		return Summary{}, err
	}
	e, err := ledger.NormalizeDate(end)
	if err != nil {
		return Summary{}, err
	}

	rows, err := a.store.SummaryRows(ctx, s, e, groupBy)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to build summary: %w", err)
	}

	return Summary{Start: s, End: e, GroupBy: groupBy, Rows: rows}, nil
}

func validGroupBy(groupBy string) bool {
	for _, g := range service.GroupBys {
		if g == groupBy {
			return true
		}
	}
	return false
}

// GoalProgress is how far net savings over a period have come toward a goal.
type GoalProgress struct {
	Goal      model.Goal `json:"goal"`
	Start     string     `json:"start"`
	End       string     `json:"end"`
	Income    float64    `json:"income"`
	Expense   float64    `json:"expense"`
	Saved     float64    `json:"saved"`
	Remaining float64    `json:"remaining"`
}

// GoalProgress treats income minus expense between start and end as the
// amount saved toward the named goal. An empty start means January 1 of the
// current year; an empty end means today.
func (a *Aggregator) GoalProgress(ctx context.Context, name, start, end string) (GoalProgress, error) {
	now := a.now()
	if start == "" {
		start = fmt.Sprintf("%d-01-01", now.Year())
	}
	if end == "" {
		end = now.Format(ledger.CanonicalDateLayout)
	}

	s, err := ledger.NormalizeDate(start)
	if err != nil {
		return GoalProgress{}, err
	}
	e, err := ledger.NormalizeDate(end)
	if err != nil {
		return GoalProgress{}, err
	}

	goal, err := a.store.GetGoal(ctx, name)
	if err != nil {
		return GoalProgress{}, err
	}

	income, expense, err := a.store.TypeTotals(ctx, s, e)
	if err != nil {
		return GoalProgress{}, fmt.Errorf("failed to total goal period: %w", err)
	}

	saved := ledger.Round2(income - expense)
	return GoalProgress{
		Goal:      *goal,
		Start:     s,
		End:       e,
		Income:    income,
		Expense:   expense,
		Saved:     saved,
		Remaining: ledger.Round2(goal.TargetAmount - saved),
	}, nil
}

// Forecast is the monthly net history behind a projection and the
// projection itself. Note explains an empty result.
type Forecast struct {
	History  []model.MonthlyNet `json:"history"`
	Forecast []ForecastPoint    `json:"forecast"`
	Note     string             `json:"-"`
}

// NoHistoryNote is the Forecast note when no transactions fall in the window.
const NoHistoryNote = "No history"

// historyDays is how far before the start of the current month the
// forecast history reaches.
const historyDays = 180

// Forecast projects the average monthly net of roughly the last six months
// forward for months months, clamped to 1..24.
func (a *Aggregator) Forecast(ctx context.Context, months int) (Forecast, error) {
	months = ClampMonths(months)

	since := HistoryStart(a.now())
	history, err := a.store.MonthlyNets(ctx, since.Format(ledger.CanonicalDateLayout))
	if err != nil {
		return Forecast{}, fmt.Errorf("failed to load forecast history: %w", err)
	}

	if len(history) == 0 {
		return Forecast{History: []model.MonthlyNet{}, Forecast: []ForecastPoint{}, Note: NoHistoryNote}, nil
	}

	points, err := Project(history, months)
	if err != nil {
		return Forecast{}, err
	}

	slog.Debug("built forecast", "since", since.Format(ledger.CanonicalDateLayout), "history_months", len(history), "months", months)
	return Forecast{History: history, Forecast: points}, nil
}

// HistoryStart is the first day of the month containing the day 180 days
// before the start of now's month.
func HistoryStart(now time.Time) time.Time {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	back := firstOfMonth.AddDate(0, 0, -historyDays)
	return time.Date(back.Year(), back.Month(), 1, 0, 0, 0, 0, time.UTC)
}
