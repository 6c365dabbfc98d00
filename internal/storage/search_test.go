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

func TestSearchTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := mustCategory(t, store, "Food", nil)
	bank, err := store.CreateAccount(ctx, model.Account{Name: "Bank"})
	require.NoError(t, err)

	first := mustTransaction(t, store, service.TransactionInput{
		Date: "2024-01-05", Amount: "120", Merchant: "Fresh Mart", Notes: "weekly groceries",
		Splits: []service.SplitInput{{CategoryID: &food, Amount: "100", Tags: "Home,Weekly"}, {Amount: "20", Tags: "snacks"}},
	})
	second := mustTransaction(t, store, service.TransactionInput{
		AccountID: &bank, Date: "2024-02-10", Amount: "5000", Type: "income", Merchant: "Employer",
	})
	third := mustTransaction(t, store, service.TransactionInput{
		Date: "2024-03-01", Amount: "45", Merchant: "Cafe", Notes: "coffee with team",
	})

	tests := []struct {
		name   string
		filter service.TransactionFilter
		want   []int64
	}{
		{name: "everything newest first", filter: service.TransactionFilter{}, want: []int64{third, second, first, first}},
		{name: "date range", filter: service.TransactionFilter{StartDate: "2024-02-01", EndDate: "2024-03-01"}, want: []int64{third, second}},
		{name: "non canonical dates", filter: service.TransactionFilter{StartDate: "1/2/2024"}, want: []int64{third, second}},
		{name: "account", filter: service.TransactionFilter{AccountID: &bank}, want: []int64{second}},
		{name: "category", filter: service.TransactionFilter{CategoryID: &food}, want: []int64{first}},
		{name: "type", filter: service.TransactionFilter{Type: "INCOME"}, want: []int64{second}},
		{name: "merchant", filter: service.TransactionFilter{Merchant: "mart"}, want: []int64{first, first}},
		{name: "min amount is per split", filter: service.TransactionFilter{MinAmount: ptr(50.0)}, want: []int64{second, first}},
		{name: "max amount", filter: service.TransactionFilter{MaxAmount: ptr(45.0)}, want: []int64{third, first}},
		{name: "tags any of", filter: service.TransactionFilter{Tags: "weekly, snacks"}, want: []int64{first, first}},
		{name: "tags whole words", filter: service.TransactionFilter{Tags: "week"}, want: nil},
		{name: "query in notes", filter: service.TransactionFilter{Query: "COFFEE"}, want: []int64{third}},
		{name: "query in merchant", filter: service.TransactionFilter{Query: "employ"}, want: []int64{second}},
		{name: "limit and offset", filter: service.TransactionFilter{Limit: 2, Offset: 1}, want: []int64{second, first}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := store.SearchTransactions(ctx, tt.filter)
			require.NoError(t, err)

			var got []int64
			for _, r := range rows {
				got = append(got, r.TransactionID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("row shape", func(t *testing.T) {
		rows, err := store.SearchTransactions(ctx, service.TransactionFilter{AccountID: &bank})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		r := rows[0]
		assert.Equal(t, "Bank", *r.AccountName)
		assert.Equal(t, model.TypeIncome, r.Type)
		assert.InDelta(t, 5000, r.GrossAmount, 0.001)
		require.NotNil(t, r.Amount)
		assert.InDelta(t, 5000, *r.Amount, 0.001)
		assert.Nil(t, r.CategoryName)
	})

	t.Run("invalid filters", func(t *testing.T) {
		_, err := store.SearchTransactions(ctx, service.TransactionFilter{StartDate: "yesterday"})
		assert.True(t, common.IsValidation(err))
		_, err = store.SearchTransactions(ctx, service.TransactionFilter{StartDate: "2024-03-01", EndDate: "2024-01-01"})
		assert.True(t, common.IsValidation(err))
		_, err = store.SearchTransactions(ctx, service.TransactionFilter{Type: "gift"})
		assert.True(t, common.IsValidation(err))
	})
}

func TestExportRows(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	later := mustTransaction(t, store, service.TransactionInput{Date: "2024-03-01", Amount: "10"})
	earlier := mustTransaction(t, store, service.TransactionInput{Date: "2024-01-01", Amount: "20"})
	// A transaction whose only split was removed still exports one row.
	bare := mustTransaction(t, store, service.TransactionInput{Date: "2024-02-01", Amount: "30"})
	detail, err := store.GetTransaction(ctx, bare)
	require.NoError(t, err)
	_, err = store.DeleteSplit(ctx, detail.Splits[0].ID)
	require.NoError(t, err)

	rows, err := store.ExportRows(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, earlier, rows[0].TransactionID)
	assert.Equal(t, bare, rows[1].TransactionID)
	assert.Nil(t, rows[1].SplitID)
	assert.Equal(t, later, rows[2].TransactionID)

	rows, err = store.ExportRows(ctx, "2024-02-15", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, later, rows[0].TransactionID)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"home", "weekly"}, splitTags(" Home , ,WEEKLY"))
	assert.Nil(t, splitTags(""))
}
