package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// BudgetRows returns one row per category with its budget for month and its
// expense split total between start and end inclusive. Categories without a
// budget carry a nil budget; variance treats it as zero.
func (s *SQLiteStorage) BudgetRows(ctx context.Context, month, startDate, endDate string) ([]model.BudgetLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH actuals AS (
			SELECT ts.category_id, SUM(ts.amount) AS spent
			FROM transactions t
			JOIN transaction_splits ts ON ts.transaction_id = t.id
			WHERE t.type = 'expense' AND t.date BETWEEN ? AND ?
			GROUP BY ts.category_id
		)
		SELECT cat.id, cat.name, b.amount,
		       COALESCE(a.spent, 0),
		       COALESCE(b.amount, 0) - COALESCE(a.spent, 0)
		FROM categories cat
		LEFT JOIN budgets b ON b.category_id = cat.id AND b.month_yyyymm = ?
		LEFT JOIN actuals a ON a.category_id = cat.id
		ORDER BY cat.name, cat.id`,
		startDate, endDate, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lines := []model.BudgetLine{}
	for rows.Next() {
		var l model.BudgetLine
		if err := rows.Scan(&l.CategoryID, &l.CategoryName, &l.BudgetAmount, &l.ActualSpent, &l.Variance); err != nil {
			return nil, fmt.Errorf("failed to scan budget line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

var summaryQueries = map[string]string{
	service.GroupByCategory: `
		SELECT COALESCE(cat.name, 'Uncategorized'), SUM(ts.amount) AS total
		FROM transactions t
		JOIN transaction_splits ts ON ts.transaction_id = t.id
		LEFT JOIN categories cat ON cat.id = ts.category_id
		WHERE t.date BETWEEN ? AND ?
		GROUP BY cat.id
		ORDER BY total DESC`,
	service.GroupByMonth: `
		SELECT substr(t.date, 1, 7) AS key, SUM(ts.amount) AS total
		FROM transactions t
		JOIN transaction_splits ts ON ts.transaction_id = t.id
		WHERE t.date BETWEEN ? AND ?
		GROUP BY substr(t.date, 1, 7)
		ORDER BY key ASC`,
	service.GroupByMerchant: `
		SELECT t.merchant, SUM(ts.amount) AS total
		FROM transactions t
		JOIN transaction_splits ts ON ts.transaction_id = t.id
		WHERE t.date BETWEEN ? AND ?
		GROUP BY t.merchant
		ORDER BY total DESC`,
	service.GroupByAccount: `
		SELECT ac.name, SUM(ts.amount) AS total
		FROM transactions t
		JOIN transaction_splits ts ON ts.transaction_id = t.id
		LEFT JOIN accounts ac ON ac.id = t.account_id
		WHERE t.date BETWEEN ? AND ?
		GROUP BY ac.name
		ORDER BY total DESC`,
	service.GroupByType: `
		SELECT t.type, SUM(ts.amount) AS total
		FROM transactions t
		JOIN transaction_splits ts ON ts.transaction_id = t.id
		WHERE t.date BETWEEN ? AND ?
		GROUP BY t.type
		ORDER BY total DESC`,
}

// SummaryRows totals split amounts between start and end inclusive, grouped
// by one of the service.GroupBy* keys. Only the category grouping labels a
// missing key; an account grouping reports unassigned transactions with a
// nil key.
func (s *SQLiteStorage) SummaryRows(ctx context.Context, startDate, endDate, groupBy string) ([]model.SummaryRow, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query, ok := summaryQueries[groupBy]
	if !ok {
		return nil, common.Validationf("group_by must be category|month|merchant|account|type")
	}

	rows, err := s.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []model.SummaryRow{}
	for rows.Next() {
		var r model.SummaryRow
		if err := rows.Scan(&r.Key, &r.Total); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// TypeTotals sums income and expense split amounts between start and end inclusive.
func (s *SQLiteStorage) TypeTotals(ctx context.Context, startDate, endDate string) (float64, float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, 0, err
	}

	var income, expense float64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN t.type = 'income' THEN ts.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN t.type = 'expense' THEN ts.amount ELSE 0 END), 0)
		FROM transactions t
		JOIN transaction_splits ts ON ts.transaction_id = t.id
		WHERE t.date BETWEEN ? AND ?`,
		startDate, endDate).Scan(&income, &expense)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query totals: %w", err)
	}
	return income, expense, nil
}

// MonthlyNets returns per-month income, expense and net from since onwards.
// Months without transactions are absent, not zero.
func (s *SQLiteStorage) MonthlyNets(ctx context.Context, since string) ([]model.MonthlyNet, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH monthly AS (
			SELECT substr(t.date, 1, 7) AS ym,
			       SUM(CASE WHEN t.type = 'income' THEN ts.amount ELSE 0 END) AS inc,
			       SUM(CASE WHEN t.type = 'expense' THEN ts.amount ELSE 0 END) AS exp
			FROM transactions t
			JOIN transaction_splits ts ON ts.transaction_id = t.id
			WHERE t.date >= ?
			GROUP BY substr(t.date, 1, 7)
		)
		SELECT ym, inc, exp, inc - exp
		FROM monthly
		ORDER BY ym ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := []model.MonthlyNet{}
	for rows.Next() {
		var m model.MonthlyNet
		if err := rows.Scan(&m.Month, &m.Income, &m.Expense, &m.Net); err != nil {
			return nil, fmt.Errorf("failed to scan monthly history: %w", err)
		}
		history = append(history, m)
	}
	return history, rows.Err()
}
