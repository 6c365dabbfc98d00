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

// CreateAccount creates an account and returns its id. Type and currency
// fall back to cash and INR.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account model.Account) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(account.Name, "name"); err != nil {
		return 0, err
	}

	if account.Type == "" {
		account.Type = model.DefaultAccountType
	}
	if account.Currency == "" {
		account.Currency = model.DefaultCurrency
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (name, type, currency, opening_balance)
		VALUES (?, ?, ?, ?)`,
		strings.TrimSpace(account.Name), account.Type, account.Currency, ledger.Round2(account.OpeningBalance))
	if err != nil {
		return 0, fmt.Errorf("failed to create account: %w", err)
	}

	return res.LastInsertId()
}

// ListAccounts returns every account ordered by id.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, currency, opening_balance, created_at
		FROM accounts
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Currency, &a.OpeningBalance, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// GetAccount returns one account, or common.ErrNotFound.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var a model.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, currency, opening_balance, created_at
		FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Type, &a.Currency, &a.OpeningBalance, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	return &a, nil
}

func accountExists(ctx context.Context, q queryable, id int64) error {
	ok, err := exists(ctx, q, `SELECT 1 FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if !ok {
		return common.NotFoundf("account %d", id)
	}
	return nil
}
