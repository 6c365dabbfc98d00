package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/api"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/pattern"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long: `Rules assign a category, tags or tax rate to new splits. Every set
predicate must hold for a rule to match. Rules apply from the lowest priority
number up, so when several match, the highest priority wins field by field.`,
	}
	cmd.AddCommand(a.ruleAddCmd(), a.ruleListCmd(), a.ruleRemoveCmd(), a.ruleCheckCmd())
	return cmd
}

func (a *app) ruleAddCmd() *cobra.Command {
	var (
		priority int
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		Example: `  ledger rules add --merchant-regex "(?i)swiggy|zomato" --set-category 4 --set-tags food,delivery
  ledger rules add --type income --min 50000 --set-category 9 --priority 200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rule, err := ruleFromFlags(cmd)
			if err != nil {
				return err
			}
			rule.Priority = priority
			rule.Enabled = !disabled

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				id, err := store.AddRule(ctx, rule)
				if err != nil {
					return err
				}
				rule.ID = id
				return a.printer.Result(rule, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Added rule %d", id))
				})
			})
		},
	}

	flags := cmd.Flags()
	flags.String("merchant-regex", "", "Regular expression matched against the merchant")
	flags.String("min", "", "Minimum amount, inclusive")
	flags.String("max", "", "Maximum amount, inclusive")
	flags.String("type", "", "Transaction type to match")
	flags.String("set-category", "", "Category id to assign")
	flags.String("set-tags", "", "Tags to assign")
	flags.String("set-tax-rate", "", "Tax rate percent to assign")
	flags.IntVar(&priority, "priority", model.DefaultRulePriority, "Application order; higher wins")
	flags.BoolVar(&disabled, "disabled", false, "Store the rule disabled")
	return cmd
}

func ruleFromFlags(cmd *cobra.Command) (model.Rule, error) {
	var (
		rule model.Rule
		err  error
	)
	rule.When.MerchantRegex = optionalString(cmd, "merchant-regex")
	if rule.When.AmountMin, err = optionalFloat(cmd, "min"); err != nil {
		return rule, err
	}
	if rule.When.AmountMax, err = optionalFloat(cmd, "max"); err != nil {
		return rule, err
	}
	if raw := optionalString(cmd, "type"); raw != nil {
		t, err := ledger.ParseTransactionType(*raw)
		if err != nil {
			return rule, err
		}
		rule.When.Type = &t
	}
	if rule.Set.CategoryID, err = optionalID(cmd, "set-category"); err != nil {
		return rule, err
	}
	rule.Set.Tags = optionalString(cmd, "set-tags")
	if rule.Set.TaxRate, err = optionalFloat(cmd, "set-tax-rate"); err != nil {
		return rule, err
	}
	return rule, nil
}

func (a *app) ruleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in application order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				rules, err := store.ListRules(ctx)
				if err != nil {
					return err
				}
				return a.printer.Result(rules, map[string]any{"count": len(rules)}, func() string {
					return renderRules(rules)
				})
			})
		},
	}
}

func renderRules(rules []model.Rule) string {
	if len(rules) == 0 {
		return cli.FormatInfo("No rules")
	}
	rows := make([][]string, len(rules))
	for i, r := range rules {
		enabled := cli.SuccessIcon
		if !r.Enabled {
			enabled = cli.SubtleStyle.Render("off")
		}
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			strconv.Itoa(r.Priority),
			enabled,
			describeMatch(r.When),
			describeOverrides(r.Set),
		}
	}
	return cli.RenderTable([]string{"ID", "Priority", "On", "When", "Set"}, rows)
}

func describeMatch(m model.RuleMatch) string {
	var parts []string
	if m.MerchantRegex != nil {
		parts = append(parts, "merchant~"+*m.MerchantRegex)
	}
	if m.AmountMin != nil {
		parts = append(parts, "amount>="+ledger.FormatAmount(*m.AmountMin))
	}
	if m.AmountMax != nil {
		parts = append(parts, "amount<="+ledger.FormatAmount(*m.AmountMax))
	}
	if m.Type != nil {
		parts = append(parts, "type="+string(*m.Type))
	}
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, " ")
}

func describeOverrides(o model.Overrides) string {
	var parts []string
	if o.CategoryID != nil {
		parts = append(parts, "category="+strconv.FormatInt(*o.CategoryID, 10))
	}
	if o.Tags != nil {
		parts = append(parts, "tags="+*o.Tags)
	}
	if o.TaxRate != nil {
		parts = append(parts, "tax="+ledger.FormatAmount(*o.TaxRate))
	}
	return strings.Join(parts, " ")
}

func (a *app) ruleRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "rule id")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				removed, err := store.RemoveRule(ctx, id)
				if err != nil {
					return err
				}
				return a.printer.Result(map[string]int64{"removed": removed}, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Removed rule %d", id))
				})
			})
		},
	}
}

func (a *app) ruleCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Find rules pointing at deleted categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				stale, err := api.StaleRules(ctx, store)
				if err != nil {
					return err
				}
				return a.printer.Result(stale, map[string]any{"count": len(stale)}, func() string {
					return renderStale(stale)
				})
			})
		},
	}
}

func renderStale(stale []pattern.StaleReference) string {
	if len(stale) == 0 {
		return cli.FormatSuccess("Every rule points at an existing category")
	}
	lines := make([]string, len(stale))
	for i, s := range stale {
		lines[i] = cli.FormatWarning(fmt.Sprintf("rule %d sets missing category %d", s.RuleID, s.CategoryID))
	}
	return strings.Join(lines, "\n")
}
