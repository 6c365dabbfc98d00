package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/importer"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

type importFunc func(im *importer.Importer) func(context.Context, io.Reader, importer.Options) (importer.Result, error)

func (a *app) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from CSV or OFX",
		Long: `Import a statement. Each row becomes one transaction with one split,
classified by the enabled rules. Imports are dry runs unless --commit is
given; a committed import stops at the first bad row and keeps the rows
written before it.`,
	}
	cmd.AddCommand(
		a.importFormatCmd("csv", "Import a CSV file with date and amount columns",
			func(im *importer.Importer) func(context.Context, io.Reader, importer.Options) (importer.Result, error) {
				return im.ImportCSV
			}),
		a.importFormatCmd("ofx", "Import an OFX/QFX bank or card statement",
			func(im *importer.Importer) func(context.Context, io.Reader, importer.Options) (importer.Result, error) {
				return im.ImportOFX
			}),
	)
	return cmd
}

func (a *app) importFormatCmd(name, short string, pick importFunc) *cobra.Command {
	var (
		commit      bool
		defaultType string
	)

	cmd := &cobra.Command{
		Use:   name + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := importer.DefaultOptions()
			opts.DryRun = !commit
			opts.DefaultType = a.cfg.DefaultImportType()
			if defaultType != "" {
				t, err := ledger.ParseTransactionType(defaultType)
				if err != nil {
					return err
				}
				opts.DefaultType = t
			}
			accountID, err := optionalID(cmd, "account")
			if err != nil {
				return err
			}
			opts.AccountID = accountID

			f, err := os.Open(args[0]) // #nosec G304 - user-supplied statement
			if err != nil {
				return common.NewUserError("could not open "+args[0], err)
			}
			defer f.Close()

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				var progress *cli.Progress
				if commit && !a.printer.JSON() {
					progress = cli.NewProgress(cmd.ErrOrStderr(), "Importing "+name)
					opts.Progress = progress.Update
				}

				result, err := pick(importer.New(store))(ctx, f, opts)
				if progress != nil {
					progress.Finish()
				}
				meta := map[string]any{"batch_id": result.BatchID, "dry_run": opts.DryRun, "inserted": result.Inserted, "file": args[0]}
				if err != nil {
					if a.printer.JSON() {
						_ = a.printer.Error(err, meta)
						return errAlreadyReported{err}
					}
					if result.Inserted > 0 {
						a.printer.Line(cli.FormatWarning(fmt.Sprintf("%d rows were committed before the failure", result.Inserted)))
					}
					return err
				}
				return a.printer.Result(result, meta, func() string { return renderImport(result) })
			})
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "Write the rows instead of previewing them")
	cmd.Flags().String("account", "", "Account id for every imported transaction")
	cmd.Flags().StringVar(&defaultType, "type", "", "Type of rows without one (default: import.default_type)")
	return cmd
}

func renderImport(result importer.Result) string {
	var out string
	for _, w := range result.Warnings {
		out += cli.FormatWarning(w) + "\n"
	}
	if !result.DryRun {
		return out + cli.FormatSuccess(fmt.Sprintf("Imported %d transactions (batch %s)", result.Inserted, result.BatchID))
	}
	if len(result.Preview) == 0 {
		return out + cli.FormatInfo("Nothing to import")
	}
	rows := make([][]string, len(result.Preview))
	for i, p := range result.Preview {
		rows[i] = []string{
			strconv.Itoa(p.Row),
			p.Date,
			string(p.Type),
			p.Merchant,
			formatOptionalID(p.CategoryID),
			ledger.FormatAmount(p.Amount),
			p.Tags,
		}
	}
	out += cli.RenderTable([]string{"Row", "Date", "Type", "Merchant", "Category", "Amount", "Tags"}, rows)
	return out + "\n" + cli.FormatInfo(fmt.Sprintf("Dry run of %d rows; use --commit to import", len(result.Preview)))
}

func (a *app) exportCmd() *cobra.Command {
	var opts importer.ExportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as CSV or JSON",
		Long: `Export every transaction joined with its splits, category and account.
Without --out the content is printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				result, err := importer.Export(ctx, store, opts)
				if err != nil {
					return err
				}
				meta := map[string]any{"count": result.Count, "format": result.Format}
				return a.printer.Result(result, meta, func() string {
					if result.Path != "" {
						return cli.FormatSuccess(fmt.Sprintf("Exported %d rows to %s", result.Count, result.Path))
					}
					return result.Content
				})
			})
		},
	}
	cmd.Flags().StringVarP(&opts.Format, "format", "f", importer.FormatCSV, "Format (csv, json)")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "First date, inclusive")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "Last date, inclusive")
	cmd.Flags().StringVar(&opts.Path, "out", "", "File to write")
	return cmd
}

// errAlreadyReported marks a failure whose envelope has already been printed.
type errAlreadyReported struct{ err error }

func (e errAlreadyReported) Error() string { return e.err.Error() }
func (e errAlreadyReported) Unwrap() error { return e.err }
