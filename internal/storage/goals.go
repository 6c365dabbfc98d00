package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// SetGoal creates a goal or replaces the target of an existing one with the same name.
func (s *SQLiteStorage) SetGoal(ctx context.Context, name string, target ledger.RawAmount, targetDate string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	date, err := ledger.NormalizeDate(targetDate)
	if err != nil {
		return err
	}
	amt, err := ledger.ParseAmount(target)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (name, target_amount, target_date)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			target_amount = excluded.target_amount,
			target_date = excluded.target_date`,
		strings.TrimSpace(name), amt, date); err != nil {
		return fmt.Errorf("failed to set goal: %w", err)
	}
	return nil
}

// GetGoal returns the goal with the given name, or common.ErrNotFound.
func (s *SQLiteStorage) GetGoal(ctx context.Context, name string) (*model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var g model.Goal
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, target_amount, target_date, created_at
		FROM goals WHERE name = ?`, strings.TrimSpace(name)).
		Scan(&g.ID, &g.Name, &g.TargetAmount, &g.TargetDate, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("goal %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query goal: %w", err)
	}
	return &g, nil
}

// ListGoals returns every goal ordered by target date.
func (s *SQLiteStorage) ListGoals(ctx context.Context) ([]model.Goal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, target_amount, target_date, created_at
		FROM goals ORDER BY target_date, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	goals := []model.Goal{}
	for rows.Next() {
		var g model.Goal
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.TargetDate, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// DeleteGoals deletes the named goal, or every goal when all is set.
func (s *SQLiteStorage) DeleteGoals(ctx context.Context, name string, all bool) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	query := `DELETE FROM goals`
	var args []any
	if !all {
		name = strings.TrimSpace(name)
		if name == "" {
			return 0, common.Validationf("provide a non-empty goal name or set delete_all")
		}
		query += ` WHERE name = ?`
		args = append(args, name)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete goals: %w", err)
	}
	return rowsAffected(res), nil
}
