package report

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_AverageAcrossYearEnd(t *testing.T) {
	history := []model.MonthlyNet{
		{Month: "2024-11", Net: 100},
		{Month: "2024-12", Net: -50},
	}

	points, err := Project(history, 3)
	require.NoError(t, err)
	assert.Equal(t, []ForecastPoint{
		{Month: "2025-01", Net: 25.0},
		{Month: "2025-02", Net: 25.0},
		{Month: "2025-03", Net: 25.0},
	}, points)
}

func TestProject(t *testing.T) {
	tests := []struct {
		name      string
		history   []model.MonthlyNet
		months    int
		wantNet   float64
		wantFirst string
		wantLen   int
		wantErr   bool
	}{
		{
			name:      "rounds average to cents",
			history:   []model.MonthlyNet{{Month: "2024-01", Net: 10}, {Month: "2024-02", Net: 10}, {Month: "2024-03", Net: 0.01}},
			months:    1,
			wantNet:   6.67,
			wantFirst: "2024-04",
			wantLen:   1,
		},
		{
			name:      "gaps are not zero filled",
			history:   []model.MonthlyNet{{Month: "2024-01", Net: 300}, {Month: "2024-06", Net: 100}},
			months:    2,
			wantNet:   200,
			wantFirst: "2024-07",
			wantLen:   2,
		},
		{
			name:    "empty history",
			months:  3,
			wantLen: 0,
		},
		{
			name:    "bad month",
			history: []model.MonthlyNet{{Month: "202401", Net: 1}},
			months:  1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := Project(tt.history, tt.months)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, points, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, points[0].Month)
				for _, p := range points {
					assert.InDelta(t, tt.wantNet, p.Net, 0.0001)
				}
			}
		})
	}
}

func TestClampMonths(t *testing.T) {
	assert.Equal(t, 1, ClampMonths(0))
	assert.Equal(t, 1, ClampMonths(-5))
	assert.Equal(t, 3, ClampMonths(3))
	assert.Equal(t, 24, ClampMonths(24))
	assert.Equal(t, 24, ClampMonths(100))
}

func TestHistoryStart(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		// 2024-07-01 minus 180 days is 2024-01-03.
		{now: time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC), want: "2024-01-01"},
		// 2025-03-01 minus 180 days is 2024-09-02.
		{now: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), want: "2024-09-01"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HistoryStart(tt.now).Format("2006-01-02"))
	}
}
