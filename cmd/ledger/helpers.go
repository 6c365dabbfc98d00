package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

// openStore opens and migrates the configured database. The caller closes it.
func (a *app) openStore(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
	if err != nil {
		return nil, common.NewUserError("could not open the ledger database", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// withStore runs fn against an open store and closes it afterwards.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, store *storage.SQLiteStorage) error) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Validationf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

// optionalID returns nil when the flag was not set.
func optionalID(cmd *cobra.Command, flag string) (*int64, error) {
	if !cmd.Flags().Changed(flag) {
		return nil, nil
	}
	raw, err := cmd.Flags().GetString(flag)
	if err != nil {
		return nil, err
	}
	id, err := parseID(raw, flag)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalFloat(cmd *cobra.Command, flag string) (*float64, error) {
	if !cmd.Flags().Changed(flag) {
		return nil, nil
	}
	raw, err := cmd.Flags().GetString(flag)
	if err != nil {
		return nil, err
	}
	v, err := ledger.ParseAmount(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalString(cmd *cobra.Command, flag string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	v, _ := cmd.Flags().GetString(flag)
	return &v
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
