package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage database checkpoints",
		Long: `Create, list, restore, and delete database checkpoints.

Checkpoints save the current state of the ledger before risky changes such as
a category reset or a large import, and restore it if needed.`,
		Example: `  # Create a checkpoint before importing a statement
  ledger checkpoint create --tag pre-2024-import

  # List all checkpoints
  ledger checkpoint list

  # Restore from a checkpoint
  ledger checkpoint restore pre-2024-import`,
	}
	cmd.AddCommand(a.checkpointCreateCmd(), a.checkpointListCmd(), a.checkpointRestoreCmd(), a.checkpointDeleteCmd())
	return cmd
}

// withCheckpoints opens the store and hands its checkpoint manager to fn.
func (a *app) withCheckpoints(cmd *cobra.Command, fn func(ctx context.Context, manager *storage.CheckpointManager) error) error {
	return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
		manager, err := store.NewCheckpointManager()
		if err != nil {
			return fmt.Errorf("failed to create checkpoint manager: %w", err)
		}
		return fn(ctx, manager)
	})
}

func (a *app) checkpointCreateCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				info, err := manager.Create(ctx, tag, description)
				if err != nil {
					return fmt.Errorf("failed to create checkpoint: %w", err)
				}
				return a.printer.Result(info, nil, func() string {
					out := fmt.Sprintf("%s Created checkpoint %s (%s)",
						cli.SuccessStyle.Render(cli.SuccessIcon), cli.InfoStyle.Render(info.ID), formatFileSize(info.FileSize))
					if info.Description != "" {
						out += "\n  Description: " + info.Description
					}
					return out
				})
			})
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint tag (generated when empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the checkpoint")
	return cmd
}

func (a *app) checkpointListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				checkpoints, err := manager.List(ctx)
				if err != nil {
					return fmt.Errorf("failed to list checkpoints: %w", err)
				}
				return a.printer.Result(checkpoints, map[string]any{"count": len(checkpoints)}, func() string {
					if len(checkpoints) == 0 {
						return cli.SubtleStyle.Render("No checkpoints found.")
					}
					rows := make([][]string, len(checkpoints))
					for i, cp := range checkpoints {
						kind := "manual"
						if cp.IsAuto {
							kind = "auto"
						}
						rows[i] = []string{
							cp.ID,
							formatRelativeTime(cp.CreatedAt),
							formatFileSize(cp.FileSize),
							strconv.Itoa(cp.Transactions),
							strconv.Itoa(cp.Categories),
							kind,
						}
					}
					return cli.RenderTable([]string{"Name", "Created", "Size", "Transactions", "Categories", "Type"}, rows)
				})
			})
		},
	}
}

func (a *app) checkpointRestoreCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore the database from a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return a.withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				info, err := manager.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to get checkpoint info: %w", err)
				}
				if !force {
					prompt := fmt.Sprintf("%s This will replace your current database with checkpoint %s (created %s).",
						cli.WarningStyle.Render(cli.WarningIcon), cli.InfoStyle.Render(id), info.CreatedAt.Format("2006-01-02 15:04:05"))
					if err := a.confirm(cmd, prompt); err != nil {
						return err
					}
				}
				if err := manager.Restore(ctx, id); err != nil {
					return fmt.Errorf("failed to restore checkpoint: %w", err)
				}
				return a.printer.Result(info, nil, func() string {
					return fmt.Sprintf("%s Restored from checkpoint %s", cli.SuccessStyle.Render(cli.SuccessIcon), cli.InfoStyle.Render(id))
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func (a *app) checkpointDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return a.withCheckpoints(cmd, func(ctx context.Context, manager *storage.CheckpointManager) error {
				info, err := manager.Get(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to get checkpoint info: %w", err)
				}
				if !force {
					prompt := fmt.Sprintf("%s This will permanently delete checkpoint %s (%s).",
						cli.WarningStyle.Render(cli.WarningIcon), cli.InfoStyle.Render(id), formatFileSize(info.FileSize))
					if err := a.confirm(cmd, prompt); err != nil {
						return err
					}
				}
				if err := manager.Delete(ctx, id); err != nil {
					return fmt.Errorf("failed to delete checkpoint: %w", err)
				}
				return a.printer.Result(map[string]string{"deleted": id}, nil, func() string {
					return fmt.Sprintf("%s Deleted checkpoint %s", cli.SuccessStyle.Render(cli.SuccessIcon), cli.InfoStyle.Render(id))
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

// confirm asks a yes/no question on the command's input. JSON output never
// prompts, so --force is required there.
func (a *app) confirm(cmd *cobra.Command, prompt string) error {
	if a.printer.JSON() {
		return common.Validationf("confirmation required; pass --force")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\nContinue? (y/N) ", prompt)

	response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(response)), "y") {
		return common.NewUserError("cancelled", nil)
	}
	return nil
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
