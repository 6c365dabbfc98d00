package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ExportColumns is the fixed CSV column order.
var ExportColumns = []string{
	"transaction_id", "date", "type", "merchant", "notes", "gross_amount", "currency",
	"account_name", "split_id", "amount", "tax_rate", "tax_amount", "tags", "category_name",
}

// ExportOptions selects the format, range and destination of an export.
type ExportOptions struct {
	Format    string
	StartDate string
	EndDate   string
	// Path, when set, receives the content instead of the result.
	Path string
}

// ExportResult carries the exported content, or the path it was written to.
type ExportResult struct {
	Format  string `json:"format"`
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
	Count   int    `json:"count"`
}

// Export renders every ledger row in range. Transactions without splits
// export as one row with empty split columns.
func Export(ctx context.Context, store service.ExportStore, opts ExportOptions) (ExportResult, error) {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if opts.Format != FormatCSV && opts.Format != FormatJSON {
		return ExportResult{}, common.Validationf("format must be 'csv' or 'json'")
	}

	rows, err := store.ExportRows(ctx, opts.StartDate, opts.EndDate)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to load export rows: %w", err)
	}

	var content []byte
	switch opts.Format {
	case FormatJSON:
		if rows == nil {
			rows = []model.LedgerRow{}
		}
		content, err = json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return ExportResult{}, fmt.Errorf("failed to encode export: %w", err)
		}
	default:
		content, err = encodeCSV(rows)
		if err != nil {
			return ExportResult{}, err
		}
	}

	result := ExportResult{Format: opts.Format, Count: len(rows)}
	if opts.Path == "" {
		result.Content = string(content)
		return result, nil
	}

	if err := os.WriteFile(opts.Path, content, 0o600); err != nil {
		return ExportResult{}, fmt.Errorf("failed to write export: %w", err)
	}
	result.Path = opts.Path
	slog.Info("exported ledger", "format", opts.Format, "rows", len(rows), "path", opts.Path)
	return result, nil
}

func encodeCSV(rows []model.LedgerRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(csvRecord(r)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRecord(r model.LedgerRow) []string {
	return []string{
		strconv.FormatInt(r.TransactionID, 10),
		r.Date,
		string(r.Type),
		r.Merchant,
		r.Notes,
		formatFloat(r.GrossAmount),
		r.Currency,
		deref(r.AccountName),
		optionalInt(r.SplitID),
		optionalFloat(r.Amount),
		optionalFloat(r.TaxRate),
		optionalFloat(r.TaxAmount),
		deref(r.Tags),
		deref(r.CategoryName),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func optionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func optionalInt(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
