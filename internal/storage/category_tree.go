package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// CategoryClosure returns id followed by every descendant, breadth first.
// The forest is acyclic because categories are never re-parented.
func CategoryClosure(ctx context.Context, q queryable, id int64) ([]int64, error) {
	closure := []int64{id}
	for i := 0; i < len(closure); i++ {
		children, err := childIDs(ctx, q, closure[i])
		if err != nil {
			return nil, err
		}
		closure = append(closure, children...)
	}
	return closure, nil
}

func childIDs(ctx context.Context, q queryable, parentID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM categories WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query child categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child category: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// checkPromotableChildren fails when a direct child of id shares its name
// with another root, since promoting it would break root name uniqueness.
func checkPromotableChildren(ctx context.Context, q queryable, id int64) error {
	var name string
	err := q.QueryRowContext(ctx, `
		SELECT c.name FROM categories c
		JOIN categories r ON r.name = c.name AND r.parent_id IS NULL AND r.id != ?
		WHERE c.parent_id = ?
		ORDER BY c.id LIMIT 1`, id, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check child categories: %w", err)
	}
	return common.Validationf("cannot promote child category %q: a root category with that name already exists", name)
}

// DeleteCategory deletes a category and, unless opts.SingleNode is set, its
// whole subtree. With opts.ReassignTo, splits pointing at any deleted
// category are repointed first; otherwise they become uncategorized. Budgets
// of deleted categories are removed. Rules naming deleted categories are left
// as they are.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int64, opts service.DeleteCategoryOptions) (service.CategoryDeletion, error) {
	var result service.CategoryDeletion

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := categoryExists(ctx, tx, id); err != nil {
			return err
		}

		targets := []int64{id}
		if opts.SingleNode {
			if err := checkPromotableChildren(ctx, tx, id); err != nil {
				return err
			}
		} else {
			closure, err := CategoryClosure(ctx, tx, id)
			if err != nil {
				return err
			}
			targets = closure
		}
		result.AffectedCategoryIDs = targets

		if opts.ReassignTo != nil {
			to := *opts.ReassignTo
			if slices.Contains(targets, to) {
				return common.Validationf("reassign_to_id %d cannot be the category being deleted or one of its descendants", to)
			}
			if err := categoryExists(ctx, tx, to); err != nil {
				return fmt.Errorf("target %w", err)
			}

			placeholders, args := inClause(targets)
			res, err := tx.ExecContext(ctx,
				`UPDATE transaction_splits SET category_id = ? WHERE category_id IN (`+placeholders+`)`,
				append([]any{to}, args...)...)
			if err != nil {
				return fmt.Errorf("failed to reassign splits: %w", err)
			}
			result.ReassignedSplits = rowsAffected(res)
			result.ReassignedTo = &to
		}

		// Deepest first, so no row in the set is orphaned before it is removed.
		for i := len(targets) - 1; i >= 0; i-- {
			res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, targets[i])
			if err != nil {
				return fmt.Errorf("failed to delete category %d: %w", targets[i], err)
			}
			result.DeletedCategories += rowsAffected(res)
		}
		return nil
	})
	if err != nil {
		return service.CategoryDeletion{}, err
	}

	slog.Info("deleted categories",
		"id", id,
		"deleted", result.DeletedCategories,
		"reassigned_splits", result.ReassignedSplits,
		"single_node", opts.SingleNode)
	return result, nil
}

// DeleteAccount deletes an account. With reassignTo, its transactions move
// to that account first; otherwise their account reference is cleared.
// Transactions are never deleted.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, id int64, reassignTo *int64) (service.AccountDeletion, error) {
	result := service.AccountDeletion{AccountID: id}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := accountExists(ctx, tx, id); err != nil {
			return err
		}

		if reassignTo != nil {
			to := *reassignTo
			if to == id {
				return common.Validationf("reassign_to_id cannot be the same as the account being deleted")
			}
			if err := accountExists(ctx, tx, to); err != nil {
				return fmt.Errorf("target %w", err)
			}

			res, err := tx.ExecContext(ctx, `UPDATE transactions SET account_id = ? WHERE account_id = ?`, to, id)
			if err != nil {
				return fmt.Errorf("failed to reassign transactions: %w", err)
			}
			result.ReassignedTransactions = rowsAffected(res)
			result.ReassignedTo = &to
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		result.Deleted = rowsAffected(res)
		return nil
	})
	if err != nil {
		return service.AccountDeletion{}, err
	}

	slog.Info("deleted account",
		"id", id,
		"reassigned_transactions", result.ReassignedTransactions)
	return result, nil
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
