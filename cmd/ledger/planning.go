package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/report"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/sheets"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly category budgets",
	}
	cmd.AddCommand(a.budgetSetCmd(), a.budgetListCmd(), a.budgetDeleteCmd(), a.budgetSummaryCmd())
	return cmd
}

func (a *app) budgetSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <YYYYMM> <category-id> <amount>",
		Short:   "Set a category budget for a month",
		Example: `  ledger budget set 202401 3 5000`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			catID, err := parseID(args[1], "category id")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.SetBudget(ctx, args[0], catID, ledger.RawAmount(args[2])); err != nil {
					return err
				}
				data := map[string]any{"month_yyyymm": args[0], "category_id": catID, "amount": args[2]}
				return a.printer.Result(data, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Budget for category %d in %s set to %s", catID, args[0], args[2]))
				})
			})
		},
	}
}

func (a *app) budgetListCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				budgets, err := store.ListBudgets(ctx, month)
				if err != nil {
					return err
				}
				return a.printer.Result(budgets, map[string]any{"month_yyyymm": month, "count": len(budgets)}, func() string {
					if len(budgets) == 0 {
						return cli.FormatInfo("No budgets")
					}
					rows := make([][]string, len(budgets))
					for i, b := range budgets {
						rows[i] = []string{b.Month, strconv.FormatInt(b.CategoryID, 10), ledger.FormatAmount(b.Amount)}
					}
					return cli.RenderTable([]string{"Month", "Category", "Amount"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Only this month (YYYYMM)")
	return cmd
}

func (a *app) budgetDeleteCmd() *cobra.Command {
	var filter service.BudgetFilter

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete budgets",
		Long: `Delete budgets by month and category, by month, by category, or all
of them with --all. At least one selector is required.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Month = optionalString(cmd, "month")
			var err error
			if filter.CategoryID, err = optionalID(cmd, "category"); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				result, err := store.DeleteBudgets(ctx, filter)
				if err != nil {
					return err
				}
				return a.printer.Result(result, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Deleted %d budgets (%s)", result.Deleted, result.Mode))
				})
			})
		},
	}
	cmd.Flags().String("month", "", "Month (YYYYMM)")
	cmd.Flags().String("category", "", "Category id")
	cmd.Flags().BoolVar(&filter.All, "all", false, "Delete every budget")
	return cmd
}

func (a *app) budgetSummaryCmd() *cobra.Command {
	var toSheets bool

	cmd := &cobra.Command{
		Use:   "summary <YYYYMM>",
		Short: "Compare budgets with actual spending for a month",
		Long: `Show every category's budget, expense total and variance for a month.
--sheets also writes the summary to a Google Sheets tab.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				summary, err := report.NewAggregator(store).BudgetSummary(ctx, args[0])
				if err != nil {
					return err
				}
				meta := map[string]any{"month_yyyymm": summary.Month, "start": summary.Start, "end": summary.End}

				if toSheets {
					id, err := a.writeBudgetSheet(ctx, &summary)
					if err != nil {
						return err
					}
					meta["spreadsheet_id"] = id
				}

				return a.printer.Result(summary.Lines, meta, func() string {
					return renderBudgetSummary(summary)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&toSheets, "sheets", false, "Also write the summary to Google Sheets")
	return cmd
}

func (a *app) writeBudgetSheet(ctx context.Context, summary *report.BudgetSummary) (string, error) {
	sheetsCfg, err := a.cfg.SheetsWriterConfig()
	if err != nil {
		return "", common.NewUserError("Google Sheets is not configured", err)
	}
	writer, err := sheets.NewWriter(ctx, sheetsCfg, slog.Default())
	if err != nil {
		return "", err
	}
	id, err := writer.WriteBudget(ctx, summary)
	if err != nil {
		return "", fmt.Errorf("failed to write budget sheet: %w", err)
	}
	a.printer.Line(cli.FormatSuccess("Wrote " + sheets.TabTitle(summary.Month) + " to spreadsheet " + id))
	return id, nil
}

func renderBudgetSummary(s report.BudgetSummary) string {
	if len(s.Lines) == 0 {
		return cli.FormatInfo("No categories")
	}
	rows := make([][]string, len(s.Lines))
	for i, line := range s.Lines {
		budget := "-"
		variance := "-"
		if line.BudgetAmount != nil {
			budget = ledger.FormatAmount(*line.BudgetAmount)
			variance = ledger.FormatAmount(line.Variance)
			if line.Variance < 0 {
				variance = cli.ErrorStyle.Render(variance)
			}
		}
		rows[i] = []string{line.CategoryName, budget, ledger.FormatAmount(line.ActualSpent), variance}
	}
	title := cli.FormatTitle(fmt.Sprintf("Budget %s (%s to %s)", s.Month, s.Start, s.End))
	return title + "\n" + cli.RenderTable([]string{"Category", "Budget", "Spent", "Variance"}, rows)
}

func (a *app) summaryCmd() *cobra.Command {
	var start, end, groupBy string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total split amounts over a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				summary, err := report.NewAggregator(store).Summary(ctx, start, end, groupBy)
				if err != nil {
					return err
				}
				meta := map[string]any{"start": summary.Start, "end": summary.End, "group_by": summary.GroupBy}
				return a.printer.Result(summary.Rows, meta, func() string {
					rows := make([][]string, len(summary.Rows))
					for i, r := range summary.Rows {
						rows[i] = []string{deref(r.Key, "(none)"), ledger.FormatAmount(r.Total)}
					}
					return cli.RenderTable([]string{strings.ToUpper(summary.GroupBy[:1]) + summary.GroupBy[1:], "Total"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First date, inclusive")
	cmd.Flags().StringVar(&end, "end", "", "Last date, inclusive")
	cmd.Flags().StringVar(&groupBy, "group-by", service.GroupByCategory, "Grouping: "+strings.Join(service.GroupBys, ", "))
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func (a *app) forecastCmd() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project monthly net cash flow",
		Long: `Average the monthly net of roughly the last six months and project it
forward. --months is clamped to 1..24.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				forecast, err := report.NewAggregator(store).Forecast(ctx, months)
				if err != nil {
					return err
				}
				meta := map[string]any{"months": report.ClampMonths(months)}
				if forecast.Note != "" {
					meta["note"] = forecast.Note
				}
				return a.printer.Result(forecast, meta, func() string {
					if forecast.Note != "" {
						return cli.FormatInfo(forecast.Note)
					}
					rows := make([][]string, 0, len(forecast.History)+len(forecast.Forecast))
					for _, h := range forecast.History {
						rows = append(rows, []string{h.Month, ledger.FormatAmount(h.Income), ledger.FormatAmount(h.Expense), ledger.FormatAmount(h.Net), ""})
					}
					for _, p := range forecast.Forecast {
						rows = append(rows, []string{p.Month, "", "", ledger.FormatAmount(p.Net), "projected"})
					}
					return cli.RenderTable([]string{"Month", "Income", "Expense", "Net", ""}, rows)
				})
			})
		},
	}
	cmd.Flags().IntVar(&months, "months", 3, "Months to project")
	return cmd
}

func (a *app) goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage savings goals",
	}
	cmd.AddCommand(a.goalSetCmd(), a.goalListCmd(), a.goalDeleteCmd(), a.goalProgressCmd())
	return cmd
}

func (a *app) goalSetCmd() *cobra.Command {
	var targetDate string

	cmd := &cobra.Command{
		Use:   "set <name> <target-amount>",
		Short: "Create or update a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.SetGoal(ctx, args[0], ledger.RawAmount(args[1]), targetDate); err != nil {
					return err
				}
				goal, err := store.GetGoal(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printer.Result(goal, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Goal %s: %s", goal.Name, ledger.FormatAmount(goal.TargetAmount)))
				})
			})
		},
	}
	cmd.Flags().StringVar(&targetDate, "by", "", "Target date")
	return cmd
}

func (a *app) goalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				goals, err := store.ListGoals(ctx)
				if err != nil {
					return err
				}
				return a.printer.Result(goals, map[string]any{"count": len(goals)}, func() string {
					return renderGoals(goals)
				})
			})
		},
	}
}

func renderGoals(goals []model.Goal) string {
	if len(goals) == 0 {
		return cli.FormatInfo("No goals")
	}
	rows := make([][]string, len(goals))
	for i, g := range goals {
		rows[i] = []string{g.Name, ledger.FormatAmount(g.TargetAmount), g.TargetDate}
	}
	return cli.RenderTable([]string{"Name", "Target", "By"}, rows)
}

func (a *app) goalDeleteCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a goal, or every goal with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				deleted, err := store.DeleteGoals(ctx, name, all)
				if err != nil {
					return err
				}
				return a.printer.Result(map[string]int64{"deleted": deleted}, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Deleted %d goal(s)", deleted))
				})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every goal")
	return cmd
}

func (a *app) goalProgressCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "progress <name>",
		Short: "Show net savings toward a goal",
		Long: `Treat income minus expense over a period as saved toward the goal. The
period defaults to January 1 of this year through today.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				progress, err := report.NewAggregator(store).GoalProgress(ctx, args[0], start, end)
				if err != nil {
					return err
				}
				return a.printer.Result(progress, nil, func() string {
					body := fmt.Sprintf("Period:    %s to %s\nIncome:    %s\nExpense:   %s\nSaved:     %s\nRemaining: %s",
						progress.Start, progress.End,
						ledger.FormatAmount(progress.Income),
						ledger.FormatAmount(progress.Expense),
						ledger.FormatAmount(progress.Saved),
						ledger.FormatAmount(progress.Remaining))
					return cli.RenderBox(fmt.Sprintf("%s (target %s)", progress.Goal.Name, ledger.FormatAmount(progress.Goal.TargetAmount)), body)
				})
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Period start (default: January 1)")
	cmd.Flags().StringVar(&end, "end", "", "Period end (default: today)")
	return cmd
}

func (a *app) fxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fx",
		Short: "Manage the currency rate table",
	}
	cmd.AddCommand(a.fxSetCmd(), a.fxGetCmd(), a.fxListCmd())
	return cmd
}

func (a *app) fxSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <date> <from> <to> <rate>",
		Short:   "Record a currency rate",
		Example: `  ledger fx set 2024-01-31 USD INR 83.1`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := ledger.ParseAmount(args[3])
			if err != nil {
				return err
			}
			fx := model.FxRate{Date: args[0], From: args[1], To: args[2], Rate: rate}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.SetFxRate(ctx, fx); err != nil {
					return err
				}
				saved, err := store.GetFxRate(ctx, fx.Date, fx.From, fx.To)
				if err != nil {
					return err
				}
				return a.printer.Result(saved, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("%s %s/%s = %v", saved.Date, saved.From, saved.To, saved.Rate))
				})
			})
		},
	}
}

func (a *app) fxGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <date> <from> <to>",
		Short: "Look up a currency rate",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				rate, err := store.GetFxRate(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return a.printer.Result(rate, nil, func() string {
					return fmt.Sprintf("%s %s/%s = %v", rate.Date, rate.From, rate.To, rate.Rate)
				})
			})
		},
	}
}

func (a *app) fxListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List currency rates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				rates, err := store.ListFxRates(ctx)
				if err != nil {
					return err
				}
				return a.printer.Result(rates, map[string]any{"count": len(rates)}, func() string {
					if len(rates) == 0 {
						return cli.FormatInfo("No rates")
					}
					rows := make([][]string, len(rates))
					for i, r := range rates {
						rows[i] = []string{r.Date, r.From, r.To, strconv.FormatFloat(r.Rate, 'f', -1, 64)}
					}
					return cli.RenderTable([]string{"Date", "From", "To", "Rate"}, rows)
				})
			})
		},
	}
}
