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

// SetFxRate records the rate from one currency to another on a date,
// replacing any rate already stored for that key.
func (s *SQLiteStorage) SetFxRate(ctx context.Context, rate model.FxRate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	date, err := ledger.NormalizeDate(rate.Date)
	if err != nil {
		return err
	}
	if err := validateString(rate.From, "from_ccy"); err != nil {
		return err
	}
	if err := validateString(rate.To, "to_ccy"); err != nil {
		return err
	}
	if rate.Rate <= 0 {
		return common.Validationf("rate must be positive, got %v", rate.Rate)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO fx_rates (date, from_ccy, to_ccy, rate)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, from_ccy, to_ccy) DO UPDATE SET rate = excluded.rate`,
		date, currencyCode(rate.From), currencyCode(rate.To), rate.Rate); err != nil {
		return fmt.Errorf("failed to set fx rate: %w", err)
	}
	return nil
}

// GetFxRate returns the rate stored for an exact date and currency pair.
func (s *SQLiteStorage) GetFxRate(ctx context.Context, date, from, to string) (*model.FxRate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	d, err := ledger.NormalizeDate(date)
	if err != nil {
		return nil, err
	}

	var r model.FxRate
	err = s.db.QueryRowContext(ctx, `
		SELECT date, from_ccy, to_ccy, rate FROM fx_rates
		WHERE date = ? AND from_ccy = ? AND to_ccy = ?`,
		d, currencyCode(from), currencyCode(to)).
		Scan(&r.Date, &r.From, &r.To, &r.Rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("fx rate %s->%s on %s", from, to, d)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fx rate: %w", err)
	}
	return &r, nil
}

// ListFxRates returns every stored rate, newest first.
func (s *SQLiteStorage) ListFxRates(ctx context.Context) ([]model.FxRate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, from_ccy, to_ccy, rate FROM fx_rates
		ORDER BY date DESC, from_ccy, to_ccy`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fx rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rates := []model.FxRate{}
	for rows.Next() {
		var r model.FxRate
		if err := rows.Scan(&r.Date, &r.From, &r.To, &r.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan fx rate: %w", err)
		}
		rates = append(rates, r)
	}
	return rates, rows.Err()
}

func currencyCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
