package ledger

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input any
		name  string
		want  float64
	}{
		{name: "string", input: "12.50", want: 12.5},
		{name: "thousands separator", input: "1,234.56", want: 1234.56},
		{name: "millions", input: "-1,234,567", want: -1234567},
		{name: "negative", input: "-3", want: -3},
		{name: "whitespace", input: " 7.25 ", want: 7.25},
		{name: "float", input: 9.99, want: 9.99},
		{name: "int", input: 42, want: 42},
		{name: "int64", input: int64(5), want: 5},
		{name: "json number", input: json.Number("100.1"), want: 100.1},
		{name: "raw amount", input: RawAmount("0"), want: 0},
		{name: "decimal", input: decimal.RequireFromString("2.5"), want: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAmountRejects(t *testing.T) {
	for _, in := range []any{"abc", "", "12..3", nil, true} {
		_, err := ParseAmount(in)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrValidation)
	}

	_, err := ParseAmount("abc")
	assert.Contains(t, err.Error(), "abc")
}

func TestParseAmountRejectsMisplacedCommas(t *testing.T) {
	for _, in := range []string{"12,50", "1,5", "1,2,3", "1,23,456", ",100", "1,000.", "1234,567", "1,000,00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAmount(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Contains(t, err.Error(), in)
		})
	}
}

func TestRawAmountUnmarshal(t *testing.T) {
	var payload struct {
		A RawAmount `json:"a"`
		B RawAmount `json:"b"`
		C RawAmount `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": "7", "c": null}`), &payload))
	assert.Equal(t, RawAmount("12.5"), payload.A)
	assert.Equal(t, RawAmount("7"), payload.B)
	assert.Equal(t, RawAmount(""), payload.C)

	err := json.Unmarshal([]byte(`{"a": true}`), &payload)
	require.Error(t, err)
}

func TestTaxAmount(t *testing.T) {
	assert.InDelta(t, 18.0, TaxAmount(100, 18), 1e-9)
	assert.InDelta(t, 0.0, TaxAmount(100, 0), 1e-9)
	assert.InDelta(t, 1.85, TaxAmount(10.25, 18), 1e-9)
	assert.InDelta(t, 0.63, TaxAmount(12.5, 5), 1e-9)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 1.01, Round2(1.005), 1e-9)
	assert.InDelta(t, 25.0, Round2(25), 1e-9)
	assert.Equal(t, "3.10", FormatAmount(3.1))
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		month, start, end string
	}{
		{"202401", "2024-01-01", "2024-01-31"},
		{"202402", "2024-02-01", "2024-02-29"},
		{"202302", "2023-02-01", "2023-02-28"},
		{"202412", "2024-12-01", "2024-12-31"},
		{"202404", "2024-04-01", "2024-04-30"},
	}

	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			start, end, err := MonthBounds(tt.month)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}

	for _, bad := range []string{"2024-01", "202413", "202400", "24011", "abcdef"} {
		_, _, err := MonthBounds(bad)
		assert.ErrorIs(t, err, common.ErrValidation, bad)
		assert.Error(t, ValidateMonth(bad))
	}
}

func TestParseTransactionType(t *testing.T) {
	got, err := ParseTransactionType("Income")
	require.NoError(t, err)
	assert.Equal(t, model.TypeIncome, got)

	_, err = ParseTransactionType("refund")
	assert.ErrorIs(t, err, common.ErrValidation)
}
