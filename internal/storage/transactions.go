package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/pattern"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// splitRow is a split ready to be written.
type splitRow struct {
	categoryID *int64
	tags       string
	amount     float64
	taxRate    float64
	taxAmount  float64
}

// CreateTransaction writes a transaction and its splits atomically and
// returns the new id.
//
// Explicit splits with a zero amount are skipped. Every other split is
// classified against its own amount: a rule category replaces the split's
// category, while rule tags and tax rate only fill values the split left
// empty. Without explicit splits, one split covering the gross amount is
// written with whatever the rules produce.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, in service.TransactionInput) (int64, error) {
	date, err := ledger.NormalizeDate(in.Date)
	if err != nil {
		return 0, err
	}
	amount, err := ledger.ParseAmount(in.Amount)
	if err != nil {
		return 0, err
	}
	txType, err := ledger.ParseTransactionType(in.Type)
	if err != nil {
		return 0, err
	}
	currency := in.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}

	// Parse every split amount before touching the database.
	splitAmounts := make([]float64, len(in.Splits))
	for i, sp := range in.Splits {
		if splitAmounts[i], err = ledger.ParseAmount(sp.Amount); err != nil {
			return 0, fmt.Errorf("split %d: %w", i+1, err)
		}
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if in.AccountID != nil {
			if err := accountExists(ctx, tx, *in.AccountID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (date, account_id, amount, currency, type, merchant, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			date, in.AccountID, amount, currency, string(txType), in.Merchant, in.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get transaction id: %w", err)
		}

		var classifier pattern.Classifier
		if in.RulesEnabled() {
			rules, err := loadRules(ctx, tx, true)
			if err != nil {
				return err
			}
			classifier = pattern.NewEngine(rules)
		}

		candidate := pattern.Candidate{Date: date, Type: txType, Merchant: in.Merchant, Notes: in.Notes}
		var splits []splitRow

		if len(in.Splits) == 0 {
			var overrides model.Overrides
			if classifier != nil {
				candidate.Amount = amount
				overrides = classifier.Classify(candidate)
			}
			r := pattern.Resolve(overrides, nil, "", 0, amount)
			splits = append(splits, splitRow{categoryID: r.CategoryID, tags: r.Tags, amount: amount, taxRate: r.TaxRate, taxAmount: r.TaxAmount})
		}

		for i, sp := range in.Splits {
			splitAmount := splitAmounts[i]
			if splitAmount == 0 {
				continue
			}
			var overrides model.Overrides
			if classifier != nil {
				candidate.Amount = splitAmount
				overrides = classifier.Classify(candidate)
			}
			r := pattern.Resolve(overrides, sp.CategoryID, sp.Tags, sp.TaxRate, splitAmount)
			splits = append(splits, splitRow{categoryID: r.CategoryID, tags: r.Tags, amount: splitAmount, taxRate: r.TaxRate, taxAmount: r.TaxAmount})
		}

		return insertSplits(ctx, tx, id, splits)
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("created transaction", "id", id, "date", date, "amount", amount, "type", txType)
	return id, nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, transactionID int64, splits []splitRow) error {
	if len(splits) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transaction_splits (transaction_id, category_id, amount, tax_rate, tax_amount, tags)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, sp := range splits {
		if sp.categoryID != nil {
			if err := categoryExists(ctx, tx, *sp.categoryID); err != nil {
				return err
			}
		}
		if _, err := stmt.ExecContext(ctx, transactionID, sp.categoryID, sp.amount, sp.taxRate, sp.taxAmount, sp.tags); err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}

// SaveImportRow writes one resolved import row as a transaction with exactly
// one split, in its own database transaction. The split is written even when
// its amount is zero.
func (s *SQLiteStorage) SaveImportRow(ctx context.Context, row service.ImportRow) (int64, error) {
	currency := row.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if row.AccountID != nil {
			if err := accountExists(ctx, tx, *row.AccountID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (date, account_id, amount, currency, type, merchant, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row.Date, row.AccountID, row.Amount, currency, string(row.Type), row.Merchant, row.Notes)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get transaction id: %w", err)
		}

		return insertSplits(ctx, tx, id, []splitRow{{
			categoryID: row.CategoryID,
			tags:       row.Tags,
			amount:     row.Amount,
			taxRate:    row.TaxRate,
			taxAmount:  row.TaxAmount,
		}})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetTransaction returns a transaction with its splits and attachments.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.TransactionDetail, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var detail model.TransactionDetail
	t := &detail.Transaction
	err := s.db.QueryRowContext(ctx, `
		SELECT id, date, account_id, amount, currency, type, merchant, notes, created_at, updated_at
		FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.Date, &t.AccountID, &t.Amount, &t.Currency, &t.Type, &t.Merchant, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("transaction %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ts.id, ts.transaction_id, ts.category_id, cat.name, ts.amount, ts.tax_rate, ts.tax_amount, ts.tags
		FROM transaction_splits ts
		LEFT JOIN categories cat ON cat.id = ts.category_id
		WHERE ts.transaction_id = ?
		ORDER BY ts.id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query splits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	detail.Splits = []model.Split{}
	for rows.Next() {
		var sp model.Split
		if err := rows.Scan(&sp.ID, &sp.TransactionID, &sp.CategoryID, &sp.CategoryName,
			&sp.Amount, &sp.TaxRate, &sp.TaxAmount, &sp.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		detail.Splits = append(detail.Splits, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating splits: %w", err)
	}

	if detail.Attachments, err = s.ListAttachments(ctx, id); err != nil {
		return nil, err
	}

	return &detail, nil
}

// updatableFields is the allow-list for UpdateTransaction, in the order the
// SET clause is built.
var updatableFields = []string{"date", "amount", "account_id", "currency", "type", "merchant", "notes"}

// UpdateTransaction applies patch to a transaction. Keys outside the
// allow-list are ignored; a patch with no allowed key is a validation error.
// Date, amount and type are re-validated. Returns the number of rows updated.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, id int64, patch map[string]any) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var (
		sets   []string
		params []any
	)
	for _, field := range updatableFields {
		v, ok := patch[field]
		if !ok {
			continue
		}
		value, err := coerceField(field, v)
		if err != nil {
			return 0, err
		}
		sets = append(sets, field+" = ?")
		params = append(params, value)
	}
	if len(sets) == 0 {
		return 0, common.Validationf("no updatable fields provided")
	}

	var updated int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM transactions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to check transaction: %w", err)
		}
		if !ok {
			return common.NotFoundf("transaction %d", id)
		}

		// #nosec G202 - column names come from updatableFields
		query := `UPDATE transactions SET ` + strings.Join(sets, ", ") + `, updated_at = datetime('now') WHERE id = ?`
		res, err := tx.ExecContext(ctx, query, append(params, id)...)
		if err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		updated = rowsAffected(res)
		return nil
	})
	return updated, err
}

func coerceField(field string, v any) (any, error) {
	switch field {
	case "date":
		s, err := stringValue(field, v)
		if err != nil {
			return nil, err
		}
		return ledger.NormalizeDate(s)
	case "amount":
		return ledger.ParseAmount(v)
	case "type":
		s, err := stringValue(field, v)
		if err != nil {
			return nil, err
		}
		t, err := ledger.ParseTransactionType(s)
		return string(t), err
	case "account_id":
		return optionalID(field, v)
	default:
		return stringValue(field, v)
	}
}

func stringValue(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", common.Validationf("%s must be a string, got %v", field, v)
	}
	return s, nil
}

func optionalID(field string, v any) (*int64, error) {
	var id int64
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		id = int64(x)
	case int64:
		id = x
	case *int64:
		return x, nil
	case float64:
		if x != float64(int64(x)) {
			return nil, common.Validationf("%s must be an integer id, got %v", field, v)
		}
		id = int64(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return nil, common.Validationf("%s must be an integer id, got %v", field, v)
		}
		id = n
	default:
		return nil, common.Validationf("%s must be an integer id, got %v", field, v)
	}
	return &id, nil
}

// DeleteTransaction deletes a transaction with its splits and attachments
// and returns the number of transactions deleted.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transaction: %w", err)
	}
	return rowsAffected(res), nil
}

// AddSplit appends a split to an existing transaction. Rules are not
// consulted; the tax amount is derived from the given rate.
func (s *SQLiteStorage) AddSplit(ctx context.Context, transactionID int64, split service.SplitInput) (int64, error) {
	if err := validateID(transactionID, "transaction_id"); err != nil {
		return 0, err
	}
	amount, err := ledger.ParseAmount(split.Amount)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, `SELECT 1 FROM transactions WHERE id = ?`, transactionID)
		if err != nil {
			return fmt.Errorf("failed to check transaction: %w", err)
		}
		if !ok {
			return common.NotFoundf("transaction %d", transactionID)
		}
		if split.CategoryID != nil {
			if err := categoryExists(ctx, tx, *split.CategoryID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_splits (transaction_id, category_id, amount, tax_rate, tax_amount, tags)
			VALUES (?, ?, ?, ?, ?, ?)`,
			transactionID, split.CategoryID, amount, split.TaxRate, ledger.TaxAmount(amount, split.TaxRate), split.Tags)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// DeleteSplit deletes one split and returns the number of splits deleted.
func (s *SQLiteStorage) DeleteSplit(ctx context.Context, splitID int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM transaction_splits WHERE id = ?`, splitID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete split: %w", err)
	}
	return rowsAffected(res), nil
}
