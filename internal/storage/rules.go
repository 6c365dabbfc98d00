package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// validateRule checks a rule before it is stored.
func validateRule(rule model.Rule) error {
	w := rule.When
	if w.MerchantRegex != nil {
		if _, err := regexp.Compile("(?i)" + *w.MerchantRegex); err != nil {
			return common.Validationf("invalid merchant_regex %q: %v", *w.MerchantRegex, err)
		}
	}
	if w.AmountMin != nil && w.AmountMax != nil && *w.AmountMin > *w.AmountMax {
		return common.Validationf("amount_min %v is greater than amount_max %v", *w.AmountMin, *w.AmountMax)
	}
	if w.Type != nil && !w.Type.Valid() {
		return common.Validationf("type must be 'expense'|'income'|'transfer'")
	}
	if rule.Set.IsEmpty() {
		return common.Validationf("rule must set at least one of category_id, tags, tax_rate")
	}
	return nil
}

// AddRule stores a classification rule and returns its id. The override
// category must exist when the rule is added.
func (s *SQLiteStorage) AddRule(ctx context.Context, rule model.Rule) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateRule(rule); err != nil {
		return 0, err
	}
	if rule.Set.CategoryID != nil {
		if err := categoryExists(ctx, s.db, *rule.Set.CategoryID); err != nil {
			return 0, err
		}
	}

	whenJSON, err := json.Marshal(rule.When)
	if err != nil {
		return 0, fmt.Errorf("failed to encode rule predicate: %w", err)
	}
	setJSON, err := json.Marshal(rule.Set)
	if err != nil {
		return 0, fmt.Errorf("failed to encode rule overrides: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (when_json, set_json, priority, enabled) VALUES (?, ?, ?, ?)`,
		string(whenJSON), string(setJSON), rule.Priority, rule.Enabled)
	if err != nil {
		return 0, fmt.Errorf("failed to add rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get rule id: %w", err)
	}

	slog.Info("added rule", "id", id, "priority", rule.Priority, "enabled", rule.Enabled)
	return id, nil
}

// ListRules returns every rule in application order.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return loadRules(ctx, s.db, false)
}

// LoadEnabledRules returns the enabled rules in application order.
func (s *SQLiteStorage) LoadEnabledRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return loadRules(ctx, s.db, true)
}

// RemoveRule deletes a rule and returns the number of rules deleted.
func (s *SQLiteStorage) RemoveRule(ctx context.Context, id int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to remove rule: %w", err)
	}
	return rowsAffected(res), nil
}

// loadRules reads rules ordered by priority then id. A row whose JSON does
// not decode is skipped with a warning so one corrupt rule cannot block
// classification.
func loadRules(ctx context.Context, q queryable, enabledOnly bool) ([]model.Rule, error) {
	query := `SELECT id, when_json, set_json, priority, enabled FROM rules`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY priority ASC, id ASC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := []model.Rule{}
	for rows.Next() {
		var (
			rule              model.Rule
			whenJSON, setJSON string
		)
		if err := rows.Scan(&rule.ID, &whenJSON, &setJSON, &rule.Priority, &rule.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if err := json.Unmarshal([]byte(whenJSON), &rule.When); err != nil {
			slog.Warn("Skipping rule with malformed predicate", "rule_id", rule.ID, "error", err)
			continue
		}
		if err := json.Unmarshal([]byte(setJSON), &rule.Set); err != nil {
			slog.Warn("Skipping rule with malformed overrides", "rule_id", rule.ID, "error", err)
			continue
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}
