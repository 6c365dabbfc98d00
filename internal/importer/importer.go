// Package importer loads transactions from CSV and OFX statements through
// the classification rules, and exports the joined ledger as CSV or JSON.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/pattern"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

// Options controls an import run.
type Options struct {
	// AccountID is set on every imported transaction.
	AccountID *int64
	// Progress, when set, is called after each committed row with the
	// number of rows inserted so far.
	Progress func(inserted int)
	// DefaultType applies to rows whose source does not carry a type.
	DefaultType model.TransactionType
	// DryRun previews rows without writing anything.
	DryRun bool
}

// DefaultOptions returns a dry run of expense rows.
func DefaultOptions() Options {
	return Options{DryRun: true, DefaultType: model.TypeExpense}
}

// PreviewRow is one resolved row as it would be written.
type PreviewRow struct {
	CategoryID *int64                `json:"category_id"`
	Date       string                `json:"date"`
	Type       model.TransactionType `json:"type"`
	Merchant   string                `json:"merchant"`
	Notes      string                `json:"notes"`
	Tags       string                `json:"tags"`
	Warning    string                `json:"warning,omitempty"`
	Amount     float64               `json:"amount"`
	TaxRate    float64               `json:"tax_rate"`
	TaxAmount  float64               `json:"tax_amount"`
	Row        int                   `json:"row"`
}

// Result reports an import run. Preview is only filled on a dry run.
type Result struct {
	BatchID  string       `json:"batch_id"`
	Preview  []PreviewRow `json:"preview"`
	Warnings []string     `json:"warnings,omitempty"`
	Inserted int          `json:"inserted"`
	DryRun   bool         `json:"dry_run"`
}

// RowError is the failure of one data row, numbered from 1.
type RowError struct {
	Err error
	Row int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// candidate is a source row before coercion and classification.
type candidate struct {
	Date         string
	Amount       string
	Type         model.TransactionType
	Merchant     string
	Notes        string
	CategoryName string
	Tags         string
	Row          int
}

// nextFunc yields source rows until io.EOF.
type nextFunc func() (candidate, error)

// Importer writes imported rows through an import store.
type Importer struct {
	store service.ImportStore
}

// New creates an importer over store.
func New(store service.ImportStore) *Importer {
	return &Importer{store: store}
}

// run resolves and, unless dry-running, commits each row in order. Each row
// is committed on its own; the first failing row stops the run and rows
// committed before it stay committed.
func (im *Importer) run(ctx context.Context, source string, next nextFunc, opts Options) (Result, error) {
	if opts.DefaultType == "" {
		opts.DefaultType = model.TypeExpense
	}
	if !opts.DefaultType.Valid() {
		return Result{}, common.Validationf("invalid default type %q", opts.DefaultType)
	}

	result := Result{BatchID: uuid.NewString(), DryRun: opts.DryRun, Preview: []PreviewRow{}}
	logger := slog.With("batch_id", result.BatchID, "source", source)

	rules, err := im.store.LoadEnabledRules(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load rules: %w", err)
	}
	engine := pattern.NewEngine(rules)

	roots, err := im.store.ListRootCategories(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load categories: %w", err)
	}
	rootIDs := make(map[string]int64, len(roots))
	for _, c := range roots {
		rootIDs[c.Name] = c.ID
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		c, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, err
		}

		row, err := resolve(c, opts.DefaultType, engine, rootIDs, roots)
		if err != nil {
			logger.Warn("import stopped at invalid row", "row", c.Row, "inserted", result.Inserted, "error", err)
			return result, &RowError{Row: c.Row, Err: err}
		}
		if row.Warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("row %d: %s", row.Row, row.Warning))
		}

		if opts.DryRun {
			result.Preview = append(result.Preview, row)
			continue
		}

		if _, err := im.store.SaveImportRow(ctx, service.ImportRow{
			AccountID:  opts.AccountID,
			CategoryID: row.CategoryID,
			Date:       row.Date,
			Type:       row.Type,
			Currency:   model.DefaultCurrency,
			Merchant:   row.Merchant,
			Notes:      row.Notes,
			Tags:       row.Tags,
			Amount:     row.Amount,
			TaxRate:    row.TaxRate,
			TaxAmount:  row.TaxAmount,
		}); err != nil {
			logger.Warn("import stopped at failing row", "row", c.Row, "inserted", result.Inserted, "error", err)
			return result, &RowError{Row: c.Row, Err: err}
		}
		result.Inserted++
		if opts.Progress != nil {
			opts.Progress(result.Inserted)
		}
	}

	logger.Info("import finished", "dry_run", opts.DryRun, "inserted", result.Inserted, "previewed", len(result.Preview))
	return result, nil
}

// resolve coerces a candidate and applies rules. A rule category replaces
// the named category; rule tags apply only when the row has none.
func resolve(c candidate, defaultType model.TransactionType, engine *pattern.Engine, rootIDs map[string]int64, roots []model.Category) (PreviewRow, error) {
	date, err := ledger.NormalizeDate(strings.TrimSpace(c.Date))
	if err != nil {
		return PreviewRow{}, err
	}
	amountText := strings.TrimSpace(c.Amount)
	if amountText == "" {
		amountText = "0"
	}
	amount, err := ledger.ParseAmount(amountText)
	if err != nil {
		return PreviewRow{}, err
	}
	txType := c.Type
	if txType == "" {
		txType = defaultType
	}

	row := PreviewRow{
		Row:      c.Row,
		Date:     date,
		Type:     txType,
		Merchant: strings.TrimSpace(c.Merchant),
		Notes:    strings.TrimSpace(c.Notes),
		Amount:   amount,
	}

	var categoryID *int64
	if name := strings.TrimSpace(c.CategoryName); name != "" {
		if id, ok := rootIDs[name]; ok {
			categoryID = &id
		} else {
			row.Warning = unknownCategoryWarning(name, roots)
		}
	}

	overrides := engine.Classify(pattern.Candidate{
		Date:     date,
		Type:     txType,
		Merchant: row.Merchant,
		Notes:    row.Notes,
		Amount:   amount,
	})
	r := pattern.Resolve(overrides, categoryID, strings.TrimSpace(c.Tags), 0, amount)

	row.CategoryID = r.CategoryID
	row.Tags = r.Tags
	row.TaxRate = r.TaxRate
	row.TaxAmount = r.TaxAmount
	return row, nil
}

// unknownCategoryWarning names the root category closest to name.
func unknownCategoryWarning(name string, roots []model.Category) string {
	best, bestDist := "", -1
	for _, c := range roots {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c.Name, d
		}
	}
	if best == "" {
		return fmt.Sprintf("category %q not found; row left uncategorized", name)
	}
	return fmt.Sprintf("category %q not found; did you mean %q?", name, best)
}
