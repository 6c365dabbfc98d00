package main

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Manage transactions",
	}
	cmd.AddCommand(a.txAddCmd(), a.txGetCmd(), a.txUpdateCmd(), a.txDeleteCmd())
	return cmd
}

func (a *app) txAddCmd() *cobra.Command {
	var (
		in       service.TransactionInput
		amount   string
		noRules  bool
		category string
		tags     string
		taxRate  float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Long: `Add a transaction. Without --category a single split covering the
amount is written and classification rules decide its category, tags and
tax rate. With --category the split is explicit and rules still apply to it.`,
		Example: `  ledger tx add --date 2024-01-05 --amount 450 --merchant "Corner Grocer"
  ledger tx add --date 05/01/2024 --amount 1,200 --type income --merchant ACME --category 7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accountID, err := optionalID(cmd, "account")
			if err != nil {
				return err
			}
			in.AccountID = accountID
			in.Amount = ledger.RawAmount(amount)
			if noRules {
				off := false
				in.ApplyRules = &off
			}
			if cmd.Flags().Changed("category") || cmd.Flags().Changed("tags") || cmd.Flags().Changed("tax-rate") {
				catID, err := optionalID(cmd, "category")
				if err != nil {
					return err
				}
				in.Splits = []service.SplitInput{{CategoryID: catID, Amount: in.Amount, Tags: tags, TaxRate: taxRate}}
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				id, err := store.CreateTransaction(ctx, in)
				if err != nil {
					return err
				}
				detail, err := store.GetTransaction(ctx, id)
				if err != nil {
					return err
				}
				return a.printer.Result(detail, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Added transaction %d", id)) + "\n" + renderDetail(detail)
				})
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.Date, "date", "", "Transaction date (YYYY-MM-DD, DD/MM/YYYY, ...)")
	flags.StringVar(&amount, "amount", "", "Gross amount")
	flags.StringVar(&in.Type, "type", string(model.TypeExpense), "Transaction type (expense, income, transfer)")
	flags.StringVar(&in.Currency, "currency", model.DefaultCurrency, "Currency")
	flags.StringVar(&in.Merchant, "merchant", "", "Merchant")
	flags.StringVar(&in.Notes, "notes", "", "Notes")
	flags.String("account", "", "Account id")
	flags.StringVar(&category, "category", "", "Category id of the single split")
	flags.StringVar(&tags, "tags", "", "Comma-separated tags of the single split")
	flags.Float64Var(&taxRate, "tax-rate", 0, "Tax rate percent of the single split")
	flags.BoolVar(&noRules, "no-rules", false, "Skip classification rules")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) txGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction with its splits and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "transaction id")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				detail, err := store.GetTransaction(ctx, id)
				if err != nil {
					return err
				}
				return a.printer.Result(detail, nil, func() string { return renderDetail(detail) })
			})
		},
	}
}

func (a *app) txUpdateCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update transaction fields",
		Example: `  ledger tx update 12 --set merchant="Corner Grocer" --set amount=455.50`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "transaction id")
			if err != nil {
				return err
			}
			patch, err := parsePatch(sets)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				updated, err := store.UpdateTransaction(ctx, id, patch)
				if err != nil {
					return err
				}
				return a.printer.Result(map[string]int64{"updated": updated}, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Updated transaction %d", id))
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (date, amount, type, currency, merchant, notes, account_id)")
	return cmd
}

// parsePatch turns key=value pairs into an update patch. account_id is
// converted to an id; an empty value clears it.
func parsePatch(sets []string) (map[string]any, error) {
	patch := make(map[string]any, len(sets))
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, common.Validationf("--set expects field=value, got %q", kv)
		}
		if key != "account_id" {
			patch[key] = value
			continue
		}
		if value == "" || value == "null" {
			patch[key] = nil
			continue
		}
		id, err := parseID(value, "account_id")
		if err != nil {
			return nil, err
		}
		patch[key] = id
	}
	return patch, nil
}

func (a *app) txDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction with its splits and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "transaction id")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				deleted, err := store.DeleteTransaction(ctx, id)
				if err != nil {
					return err
				}
				return a.printer.Result(map[string]int64{"deleted": deleted}, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Deleted transaction %d", id))
				})
			})
		},
	}
}

func (a *app) splitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Manage transaction splits",
	}
	cmd.AddCommand(a.splitAddCmd(), a.splitDeleteCmd())
	return cmd
}

func (a *app) splitAddCmd() *cobra.Command {
	var (
		amount  string
		tags    string
		taxRate float64
	)

	cmd := &cobra.Command{
		Use:   "add <transaction-id>",
		Short: "Add a split to a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, err := parseID(args[0], "transaction id")
			if err != nil {
				return err
			}
			catID, err := optionalID(cmd, "category")
			if err != nil {
				return err
			}
			split := service.SplitInput{CategoryID: catID, Amount: ledger.RawAmount(amount), Tags: tags, TaxRate: taxRate}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				id, err := store.AddSplit(ctx, txID, split)
				if err != nil {
					return err
				}
				return a.printer.Result(map[string]int64{"split_id": id}, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Added split %d to transaction %d", id, txID))
				})
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Split amount")
	cmd.Flags().String("category", "", "Category id")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().Float64Var(&taxRate, "tax-rate", 0, "Tax rate percent")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) splitDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <split-id>",
		Short: "Delete a split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "split id")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				deleted, err := store.DeleteSplit(ctx, id)
				if err != nil {
					return err
				}
				return a.printer.Result(map[string]int64{"deleted": deleted}, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Deleted split %d", id))
				})
			})
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var filter service.TransactionFilter

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search transactions",
		Long: `Search the joined ledger view. Every filter is optional; --query matches
merchant and notes, --tags matches any of the comma-separated tags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if filter.AccountID, err = optionalID(cmd, "account"); err != nil {
				return err
			}
			if filter.CategoryID, err = optionalID(cmd, "category"); err != nil {
				return err
			}
			if filter.MinAmount, err = optionalFloat(cmd, "min"); err != nil {
				return err
			}
			if filter.MaxAmount, err = optionalFloat(cmd, "max"); err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				rows, err := store.SearchTransactions(ctx, filter)
				if err != nil {
					return err
				}
				return a.printer.Result(rows, map[string]any{"count": len(rows)}, func() string {
					return renderLedgerRows(rows)
				})
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&filter.Query, "query", "q", "", "Text matched against merchant and notes")
	flags.StringVar(&filter.Merchant, "merchant", "", "Merchant substring")
	flags.StringVar(&filter.Tags, "tags", "", "Comma-separated tags")
	flags.StringVar(&filter.Type, "type", "", "Transaction type")
	flags.StringVar(&filter.StartDate, "start", "", "First date, inclusive")
	flags.StringVar(&filter.EndDate, "end", "", "Last date, inclusive")
	flags.String("account", "", "Account id")
	flags.String("category", "", "Category id")
	flags.String("min", "", "Minimum split amount")
	flags.String("max", "", "Maximum split amount")
	flags.IntVar(&filter.Limit, "limit", service.DefaultSearchLimit, "Maximum rows")
	flags.IntVar(&filter.Offset, "offset", 0, "Rows to skip")
	return cmd
}

func (a *app) attachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Manage transaction attachments",
	}
	cmd.AddCommand(a.attachAddCmd(), a.attachListCmd())
	return cmd
}

func (a *app) attachAddCmd() *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "add <transaction-id> <path>",
		Short: "Link a file to a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, err := parseID(args[0], "transaction id")
			if err != nil {
				return err
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(args[1]))
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				att, err := store.AddAttachment(ctx, txID, args[1], mimeType)
				if err != nil {
					return err
				}
				return a.printer.Result(att, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Attached %s to transaction %d", att.Path, txID))
				})
			})
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (default: guessed from the extension)")
	return cmd
}

func (a *app) attachListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <transaction-id>",
		Short: "List a transaction's attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txID, err := parseID(args[0], "transaction id")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				atts, err := store.ListAttachments(ctx, txID)
				if err != nil {
					return err
				}
				return a.printer.Result(atts, map[string]any{"count": len(atts)}, func() string {
					if len(atts) == 0 {
						return cli.FormatInfo("No attachments")
					}
					rows := make([][]string, len(atts))
					for i, att := range atts {
						rows[i] = []string{strconv.FormatInt(att.ID, 10), att.Path, att.MimeType, att.AddedAt}
					}
					return cli.RenderTable([]string{"ID", "Path", "MIME", "Added"}, rows)
				})
			})
		},
	}
}

func renderDetail(d *model.TransactionDetail) string {
	t := d.Transaction
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s %s  %s  %s\n", t.Date, ledger.FormatAmount(t.Amount), t.Currency, t.Type, t.Merchant)
	if t.Notes != "" {
		fmt.Fprintf(&b, "%s\n", cli.SubtleStyle.Render(t.Notes))
	}
	rows := make([][]string, len(d.Splits))
	for i, s := range d.Splits {
		rows[i] = []string{
			strconv.FormatInt(s.ID, 10),
			deref(s.CategoryName, "-"),
			ledger.FormatAmount(s.Amount),
			ledger.FormatAmount(s.TaxRate),
			ledger.FormatAmount(s.TaxAmount),
			s.Tags,
		}
	}
	b.WriteString(cli.RenderTable([]string{"Split", "Category", "Amount", "Tax %", "Tax", "Tags"}, rows))
	if len(d.Attachments) > 0 {
		fmt.Fprintf(&b, "\n%d attachment(s)", len(d.Attachments))
	}
	return b.String()
}

func renderLedgerRows(rows []model.LedgerRow) string {
	if len(rows) == 0 {
		return cli.FormatInfo("No transactions found")
	}
	table := make([][]string, len(rows))
	for i, r := range rows {
		amount := "-"
		if r.Amount != nil {
			amount = ledger.FormatAmount(*r.Amount)
		}
		table[i] = []string{
			strconv.FormatInt(r.TransactionID, 10),
			r.Date,
			string(r.Type),
			r.Merchant,
			deref(r.CategoryName, "-"),
			amount,
			deref(r.Tags, ""),
		}
	}
	return cli.RenderTable([]string{"Tx", "Date", "Type", "Merchant", "Category", "Amount", "Tags"}, table)
}
