package report

import (
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Forecast horizon bounds, in months.
const (
	MinForecastMonths = 1
	MaxForecastMonths = 24
)

// ForecastPoint is the projected net of one month.
type ForecastPoint struct {
	Month string  `json:"month"`
	Net   float64 `json:"net"`
}

// ClampMonths bounds a forecast horizon to MinForecastMonths..MaxForecastMonths.
func ClampMonths(months int) int {
	return max(MinForecastMonths, min(MaxForecastMonths, months))
}

// Project averages the nets in history and repeats that average for months
// consecutive months after the last history month. Months absent from
// history do not count toward the average. history must be ordered by month.
func Project(history []model.MonthlyNet, months int) ([]ForecastPoint, error) {
	if len(history) == 0 || months <= 0 {
		return []ForecastPoint{}, nil
	}

	sum := decimal.Zero
	for _, h := range history {
		sum = sum.Add(decimal.NewFromFloat(h.Net))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(history)))).Round(2).InexactFloat64()

	last, err := time.Parse("2006-01", history[len(history)-1].Month)
	if err != nil {
		return nil, common.Validationf("invalid history month %q", history[len(history)-1].Month)
	}

	points := make([]ForecastPoint, 0, months)
	for i := 1; i <= months; i++ {
		points = append(points, ForecastPoint{
			Month: last.AddDate(0, i, 0).Format("2006-01"),
			Net:   avg,
		})
	}
	return points, nil
}
