package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// ledgerRowsQuery joins every transaction to its splits, their categories
// and the account. Transactions without splits yield one row.
const ledgerRowsQuery = `
	SELECT t.id, t.date, t.type, t.merchant, t.notes, t.amount, t.currency,
	       ac.id, ac.name,
	       ts.id, ts.amount, ts.tax_rate, ts.tax_amount, ts.tags,
	       cat.id, cat.name
	FROM transactions t
	LEFT JOIN transaction_splits ts ON ts.transaction_id = t.id
	LEFT JOIN categories cat ON cat.id = ts.category_id
	LEFT JOIN accounts ac ON ac.id = t.account_id`

// SearchTransactions returns split-level rows matching every set filter,
// newest first.
func (s *SQLiteStorage) SearchTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.LedgerRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	start, end, err := validateDateRange(filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}

	var (
		where  []string
		params []any
	)
	if start != "" {
		where = append(where, "t.date >= ?")
		params = append(params, start)
	}
	if end != "" {
		where = append(where, "t.date <= ?")
		params = append(params, end)
	}
	if filter.AccountID != nil {
		where = append(where, "t.account_id = ?")
		params = append(params, *filter.AccountID)
	}
	if filter.Type != "" {
		txType, err := ledger.ParseTransactionType(filter.Type)
		if err != nil {
			return nil, err
		}
		where = append(where, "t.type = ?")
		params = append(params, string(txType))
	}
	if filter.Merchant != "" {
		where = append(where, "t.merchant LIKE ?")
		params = append(params, "%"+filter.Merchant+"%")
	}
	if filter.MinAmount != nil {
		where = append(where, "ts.amount >= ?")
		params = append(params, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		where = append(where, "ts.amount <= ?")
		params = append(params, *filter.MaxAmount)
	}
	if filter.CategoryID != nil {
		where = append(where, "ts.category_id = ?")
		params = append(params, *filter.CategoryID)
	}
	if tags := splitTags(filter.Tags); len(tags) > 0 {
		ors := make([]string, 0, len(tags))
		for _, tag := range tags {
			ors = append(ors, "(',' || LOWER(ts.tags) || ',') LIKE ?")
			params = append(params, "%,"+tag+",%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	if filter.Query != "" {
		q := "%" + strings.ToLower(filter.Query) + "%"
		where = append(where, "(LOWER(t.notes) LIKE ? OR LOWER(t.merchant) LIKE ?)")
		params = append(params, q, q)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = service.DefaultSearchLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := ledgerRowsQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date DESC, t.id DESC, ts.id ASC LIMIT ? OFFSET ?"
	params = append(params, limit, offset)

	return s.queryLedgerRows(ctx, query, params...)
}

// ExportRows returns the joined ledger view over an optional inclusive date
// range, oldest first.
func (s *SQLiteStorage) ExportRows(ctx context.Context, startDate, endDate string) ([]model.LedgerRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	start, end, err := validateDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	var (
		where  []string
		params []any
	)
	if start != "" {
		where = append(where, "t.date >= ?")
		params = append(params, start)
	}
	if end != "" {
		where = append(where, "t.date <= ?")
		params = append(params, end)
	}

	query := ledgerRowsQuery
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date ASC, t.id ASC, ts.id ASC"

	return s.queryLedgerRows(ctx, query, params...)
}

func (s *SQLiteStorage) queryLedgerRows(ctx context.Context, query string, params ...any) ([]model.LedgerRow, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []model.LedgerRow{}
	for rows.Next() {
		var r model.LedgerRow
		if err := rows.Scan(
			&r.TransactionID, &r.Date, &r.Type, &r.Merchant, &r.Notes, &r.GrossAmount, &r.Currency,
			&r.AccountID, &r.AccountName,
			&r.SplitID, &r.Amount, &r.TaxRate, &r.TaxAmount, &r.Tags,
			&r.CategoryID, &r.CategoryName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return result, nil
}

// splitTags lower-cases and trims a comma-separated tag list, dropping blanks.
func splitTags(tags string) []string {
	var out []string
	for _, t := range strings.Split(tags, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
