package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
	}
	cmd.AddCommand(a.accountCreateCmd(), a.accountListCmd(), a.accountGetCmd(), a.accountDeleteCmd())
	return cmd
}

func (a *app) accountCreateCmd() *cobra.Command {
	var (
		accountType string
		currency    string
		opening     string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := ledger.ParseAmount(opening)
			if err != nil {
				return err
			}
			account := model.Account{Name: args[0], Type: accountType, Currency: currency, OpeningBalance: balance}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				id, err := store.CreateAccount(ctx, account)
				if err != nil {
					return err
				}
				created, err := store.GetAccount(ctx, id)
				if err != nil {
					return err
				}
				return a.printer.Result(created, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Created account %s (id %d)", created.Name, created.ID))
				})
			})
		},
	}

	cmd.Flags().StringVar(&accountType, "type", model.DefaultAccountType, "Account type (cash, bank, card, ...)")
	cmd.Flags().StringVar(&currency, "currency", model.DefaultCurrency, "Account currency")
	cmd.Flags().StringVar(&opening, "opening-balance", "0", "Opening balance")
	return cmd
}

func (a *app) accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				accounts, err := store.ListAccounts(ctx)
				if err != nil {
					return err
				}
				return a.printer.Result(accounts, map[string]any{"count": len(accounts)}, func() string {
					return renderAccounts(accounts)
				})
			})
		},
	}
}

func (a *app) accountGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "account id")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				account, err := store.GetAccount(ctx, id)
				if err != nil {
					return err
				}
				return a.printer.Result(account, nil, func() string {
					return renderAccounts([]model.Account{*account})
				})
			})
		},
	}
}

func (a *app) accountDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Long: `Delete an account. Its transactions move to --reassign-to when given,
otherwise they are kept with no account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "account id")
			if err != nil {
				return err
			}
			reassignTo, err := optionalID(cmd, "reassign-to")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				result, err := store.DeleteAccount(ctx, id, reassignTo)
				if err != nil {
					return err
				}
				return a.printer.Result(result, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Deleted account %d; %d transactions reassigned to %s",
						result.AccountID, result.ReassignedTransactions, formatOptionalID(result.ReassignedTo)))
				})
			})
		},
	}
	cmd.Flags().String("reassign-to", "", "Account receiving the deleted account's transactions")
	return cmd
}

func renderAccounts(accounts []model.Account) string {
	if len(accounts) == 0 {
		return cli.FormatInfo("No accounts")
	}
	rows := make([][]string, len(accounts))
	for i, acc := range accounts {
		rows[i] = []string{
			strconv.FormatInt(acc.ID, 10),
			acc.Name,
			acc.Type,
			acc.Currency,
			ledger.FormatAmount(acc.OpeningBalance),
		}
	}
	return cli.RenderTable([]string{"ID", "Name", "Type", "Currency", "Opening"}, rows)
}

func (a *app) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage the category tree",
	}
	cmd.AddCommand(a.categoryAddCmd(), a.categoryListCmd(), a.categoryDeleteCmd(), a.categorySeedCmd())
	return cmd
}

func (a *app) categoryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := optionalID(cmd, "parent")
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				id, err := store.CreateCategory(ctx, args[0], parentID)
				if err != nil {
					return err
				}
				category := model.Category{ID: id, Name: args[0], ParentID: parentID}
				return a.printer.Result(category, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Added category %s (id %d)", category.Name, id))
				})
			})
		},
	}
	cmd.Flags().String("parent", "", "Parent category id")
	return cmd
}

func (a *app) categoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				categories, err := store.ListCategories(ctx)
				if err != nil {
					return err
				}
				return a.printer.Result(categories, map[string]any{"count": len(categories)}, func() string {
					return renderCategories(categories)
				})
			})
		},
	}
}

func renderCategories(categories []model.Category) string {
	if len(categories) == 0 {
		return cli.FormatInfo("No categories")
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	rows := make([][]string, len(categories))
	for i, c := range categories {
		parent := "-"
		if c.ParentID != nil {
			parent = names[*c.ParentID]
		}
		rows[i] = []string{strconv.FormatInt(c.ID, 10), c.Name, parent}
	}
	return cli.RenderTable([]string{"ID", "Name", "Parent"}, rows)
}

func (a *app) categoryDeleteCmd() *cobra.Command {
	var singleNode bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category and its descendants",
		Long: `Delete a category together with every descendant. Splits in the deleted
categories are repointed to --reassign-to first; without it they become
uncategorized. --single-node deletes only the category and promotes its
children to roots.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category id")
			if err != nil {
				return err
			}
			reassignTo, err := optionalID(cmd, "reassign-to")
			if err != nil {
				return err
			}
			opts := service.DeleteCategoryOptions{ReassignTo: reassignTo, SingleNode: singleNode}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				result, err := store.DeleteCategory(ctx, id, opts)
				if err != nil {
					return err
				}
				return a.printer.Result(result, nil, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Deleted %d categories; %d splits reassigned to %s",
						result.DeletedCategories, result.ReassignedSplits, formatOptionalID(result.ReassignedTo)))
				})
			})
		},
	}
	cmd.Flags().String("reassign-to", "", "Category receiving the deleted categories' splits")
	cmd.Flags().BoolVar(&singleNode, "single-node", false, "Delete only this category; children become roots")
	return cmd
}

func (a *app) categorySeedCmd() *cobra.Command {
	var (
		file  string
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed categories from a definition file",
		Long: `Seed the category tree from a JSON file mapping root names to child
names. Existing categories are reused. --reset deletes every category first
and takes an automatic checkpoint before doing so.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = a.cfg.Categories.File
			}
			if file == "" {
				return common.Validationf("no category file given; use --file or categories.file")
			}
			data, err := os.ReadFile(file) // #nosec G304 - user-supplied definition file
			if err != nil {
				return common.NewUserError("could not read category file "+file, err)
			}
			defs, err := storage.ParseCategoryDefinitions(data)
			if err != nil {
				return err
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				meta := map[string]any{"file": file}
				if reset {
					checkpoint, err := autoCheckpoint(ctx, store, "categories-reset")
					if err != nil {
						return err
					}
					if checkpoint != "" {
						meta["checkpoint"] = checkpoint
					}
				}
				result, err := store.SeedCategories(ctx, defs, reset)
				if err != nil {
					return err
				}
				return a.printer.Result(result, meta, func() string {
					return cli.FormatSuccess(fmt.Sprintf("Seeded %d root and %d child categories",
						result.ParentsProcessed, result.ChildrenProcessed))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Category definition file (default: categories.file)")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete every category before seeding")
	return cmd
}

// autoCheckpoint snapshots the database before a destructive change and
// returns the checkpoint id. In-memory databases are skipped.
func autoCheckpoint(ctx context.Context, store *storage.SQLiteStorage, prefix string) (string, error) {
	if store.Path() == ":memory:" {
		return "", nil
	}
	manager, err := store.NewCheckpointManager()
	if err != nil {
		return "", fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	info, err := manager.AutoCheckpoint(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to create checkpoint: %w", err)
	}
	return info.ID, nil
}
