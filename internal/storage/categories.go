package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// CreateCategory creates a root category, or a leaf under parentID, and
// returns its id. The (name, parent) pair must be unique.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string, parentID *int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(name, "name"); err != nil {
		return 0, err
	}

	if parentID != nil {
		if err := categoryExists(ctx, s.db, *parentID); err != nil {
			return 0, err
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, parent_id) VALUES (?, ?)`,
		strings.TrimSpace(name), parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get category id: %w", err)
	}

	slog.Debug("created category", "id", id, "name", name, "parent_id", parentID)
	return id, nil
}

// ListCategories returns every category, grouping children under their root.
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.queryCategories(ctx, `
		SELECT id, name, parent_id FROM categories
		ORDER BY COALESCE(parent_id, id), name`)
}

// ListRootCategories returns the categories without a parent, ordered by name.
func (s *SQLiteStorage) ListRootCategories(ctx context.Context) ([]model.Category, error) {
	return s.queryCategories(ctx, `
		SELECT id, name, parent_id FROM categories
		WHERE parent_id IS NULL
		ORDER BY name`)
}

func (s *SQLiteStorage) queryCategories(ctx context.Context, query string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.ParentID); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategory returns one category, or common.ErrNotFound.
func (s *SQLiteStorage) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var cat model.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, parent_id FROM categories WHERE id = ?`, id).
		Scan(&cat.ID, &cat.Name, &cat.ParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("category %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

func categoryExists(ctx context.Context, q queryable, id int64) error {
	ok, err := exists(ctx, q, `SELECT 1 FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}
	if !ok {
		return common.NotFoundf("category %d", id)
	}
	return nil
}

// ParseCategoryDefinitions decodes a category definition file: a JSON object
// mapping each root name to a list of child names.
func ParseCategoryDefinitions(data []byte) (model.CategoryDefinitions, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, common.Validationf("category definitions must be an object mapping parent to a list of children")
	}

	defs := make(model.CategoryDefinitions, len(raw))
	for parent, value := range raw {
		var children []string
		if err := json.Unmarshal(value, &children); err != nil || children == nil {
			return nil, common.Validationf("category %q must map to a list of subcategories", parent)
		}
		defs[parent] = children
	}
	return defs, nil
}

// SeedCategories inserts every root and child named in defs that does not
// exist yet. Existing categories are left untouched. With reset, every
// category is deleted first, taking budgets with it.
func (s *SQLiteStorage) SeedCategories(ctx context.Context, defs model.CategoryDefinitions, reset bool) (service.SeedResult, error) {
	result := service.SeedResult{Reset: reset}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if reset {
			n, err := deleteAllCategories(ctx, tx)
			if err != nil {
				return err
			}
			slog.Info("cleared categories before seeding", "deleted", n)
		}

		for _, parent := range sortedKeys(defs) {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO categories (name, parent_id) VALUES (?, NULL)`, parent); err != nil {
				return fmt.Errorf("failed to insert category %q: %w", parent, err)
			}

			var parentID int64
			if err := tx.QueryRowContext(ctx,
				`SELECT id FROM categories WHERE name = ? AND parent_id IS NULL`, parent).Scan(&parentID); err != nil {
				return fmt.Errorf("failed to fetch category %q: %w", parent, err)
			}
			result.ParentsProcessed++

			for _, child := range defs[parent] {
				if _, err := tx.ExecContext(ctx,
					`INSERT OR IGNORE INTO categories (name, parent_id) VALUES (?, ?)`, child, parentID); err != nil {
					return fmt.Errorf("failed to insert category %q under %q: %w", child, parent, err)
				}
				result.ChildrenProcessed++
			}
		}
		return nil
	})
	if err != nil {
		return service.SeedResult{}, err
	}

	slog.Info("seeded categories",
		"parents", result.ParentsProcessed,
		"children", result.ChildrenProcessed,
		"reset", reset)
	return result, nil
}

// deleteAllCategories removes leaves until nothing is left, so no row is
// ever orphaned into a root whose name could clash with an existing root.
func deleteAllCategories(ctx context.Context, tx *sql.Tx) (int64, error) {
	var total int64
	for {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM categories
			WHERE id NOT IN (SELECT parent_id FROM categories WHERE parent_id IS NOT NULL)`)
		if err != nil {
			return total, fmt.Errorf("failed to delete categories: %w", err)
		}
		n := rowsAffected(res)
		if n == 0 {
			return total, nil
		}
		total += n
	}
}

func sortedKeys(defs model.CategoryDefinitions) []string {
	keys := make([]string, 0, len(defs))
	for k := range defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
