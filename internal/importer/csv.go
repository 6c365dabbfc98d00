package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
)

const utf8BOM = "\ufeff"

// Recognized CSV columns. Only date and amount are required.
const (
	colDate     = "date"
	colAmount   = "amount"
	colType     = "type"
	colMerchant = "merchant"
	colNotes    = "notes"
	colCategory = "category_name"
	colTags     = "tags"
)

// ImportCSV reads a headed CSV from r. Header names are matched case
// insensitively; unknown columns are ignored.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, common.Validationf("CSV has no header row")
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, required := range []string{colDate, colAmount} {
		if _, ok := index[required]; !ok {
			return Result{}, common.Validationf("CSV must include %q and %q headers", colDate, colAmount)
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	row := 0
	next := func() (candidate, error) {
		record, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return candidate{}, io.EOF
			}
			return candidate{}, &RowError{Row: row + 1, Err: fmt.Errorf("failed to read CSV: %w", err)}
		}
		row++

		c := candidate{
			Row:          row,
			Date:         field(record, colDate),
			Amount:       field(record, colAmount),
			Merchant:     field(record, colMerchant),
			Notes:        field(record, colNotes),
			CategoryName: field(record, colCategory),
			Tags:         field(record, colTags),
		}
		if t := strings.TrimSpace(field(record, colType)); t != "" {
			txType, err := ledger.ParseTransactionType(t)
			if err != nil {
				return candidate{}, &RowError{Row: row, Err: err}
			}
			c.Type = txType
		}
		return c, nil
	}

	return im.run(ctx, "csv", next, opts)
}
