// Package storage provides the SQLite persistence layer for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty. The error also
// matches common.ErrValidation.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %w: %s", common.ErrValidation, ErrEmptyString, paramName)
	}
	return nil
}

// validateID ensures an entity id is positive.
func validateID(id int64, paramName string) error {
	if id <= 0 {
		return common.Validationf("%s must be a positive id, got %d", paramName, id)
	}
	return nil
}

// validateDateRange normalizes optional start and end dates and rejects a
// range that ends before it starts.
func validateDateRange(start, end string) (string, string, error) {
	s, err := ledger.NormalizeOptionalDate(start)
	if err != nil {
		return "", "", err
	}
	e, err := ledger.NormalizeOptionalDate(end)
	if err != nil {
		return "", "", err
	}
	if s != "" && e != "" && e < s {
		return "", "", common.Validationf("end date %s is before start date %s", e, s)
	}
	return s, e, nil
}
