package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// SetBudget creates or replaces the budget of one category for one YYYYMM month.
func (s *SQLiteStorage) SetBudget(ctx context.Context, month string, categoryID int64, amount ledger.RawAmount) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ledger.ValidateMonth(month); err != nil {
		return err
	}
	amt, err := ledger.ParseAmount(amount)
	if err != nil {
		return err
	}
	if err := categoryExists(ctx, s.db, categoryID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (month_yyyymm, category_id, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(month_yyyymm, category_id) DO UPDATE SET amount = excluded.amount`,
		month, categoryID, amt); err != nil {
		return fmt.Errorf("failed to set budget: %w", err)
	}
	return nil
}

// ListBudgets returns the budgets of one month, or of every month when month is empty.
func (s *SQLiteStorage) ListBudgets(ctx context.Context, month string) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, month_yyyymm, category_id, amount FROM budgets`
	var args []any
	if month != "" {
		if err := ledger.ValidateMonth(month); err != nil {
			return nil, err
		}
		query += ` WHERE month_yyyymm = ?`
		args = append(args, month)
	}
	query += ` ORDER BY month_yyyymm, category_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	budgets := []model.Budget{}
	for rows.Next() {
		var b model.Budget
		if err := rows.Scan(&b.ID, &b.Month, &b.CategoryID, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// DeleteBudgets deletes budgets in one of four modes: a month and category
// pair, a whole month, a whole category, or everything. A filter with no
// mode selected is a validation error.
func (s *SQLiteStorage) DeleteBudgets(ctx context.Context, filter service.BudgetFilter) (service.BudgetDeletion, error) {
	if err := validateContext(ctx); err != nil {
		return service.BudgetDeletion{}, err
	}

	result := service.BudgetDeletion{Month: filter.Month, CategoryID: filter.CategoryID}
	query := `DELETE FROM budgets`
	var args []any

	switch {
	case filter.All:
		result.Mode = "all"
	case filter.Month != nil && filter.CategoryID != nil:
		if err := ledger.ValidateMonth(*filter.Month); err != nil {
			return service.BudgetDeletion{}, err
		}
		result.Mode = "month+category"
		query += ` WHERE month_yyyymm = ? AND category_id = ?`
		args = append(args, *filter.Month, *filter.CategoryID)
	case filter.Month != nil:
		if err := ledger.ValidateMonth(*filter.Month); err != nil {
			return service.BudgetDeletion{}, err
		}
		result.Mode = "month"
		query += ` WHERE month_yyyymm = ?`
		args = append(args, *filter.Month)
	case filter.CategoryID != nil:
		result.Mode = "category"
		query += ` WHERE category_id = ?`
		args = append(args, *filter.CategoryID)
	default:
		return service.BudgetDeletion{}, common.Validationf("provide month_yyyymm or category_id, or set delete_all")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return service.BudgetDeletion{}, fmt.Errorf("failed to delete budgets: %w", err)
	}
	result.Deleted = rowsAffected(res)

	slog.Info("deleted budgets", "mode", result.Mode, "deleted", result.Deleted)
	return result, nil
}
