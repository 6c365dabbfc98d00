package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger schema: accounts, categories, transactions, splits, budgets",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					type TEXT NOT NULL DEFAULT 'cash',
					currency TEXT NOT NULL DEFAULT 'INR',
					opening_balance REAL NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL DEFAULT (date('now'))
				)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					parent_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
				)`,
				// NULL parents compare distinct in a plain UNIQUE, so roots need the COALESCE.
				`CREATE UNIQUE INDEX idx_categories_name_parent ON categories(name, COALESCE(parent_id, 0))`,
				`CREATE INDEX idx_categories_parent ON categories(parent_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					date TEXT NOT NULL,
					account_id INTEGER REFERENCES accounts(id) ON DELETE SET NULL,
					amount REAL NOT NULL,
					currency TEXT NOT NULL DEFAULT 'INR',
					type TEXT NOT NULL CHECK(type IN ('expense', 'income', 'transfer')),
					merchant TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL DEFAULT (datetime('now')),
					updated_at TEXT NOT NULL DEFAULT (datetime('now'))
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,

				`CREATE TABLE IF NOT EXISTS transaction_splits (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
					amount REAL NOT NULL,
					tax_rate REAL NOT NULL DEFAULT 0,
					tax_amount REAL NOT NULL DEFAULT 0,
					tags TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_splits_transaction ON transaction_splits(transaction_id)`,
				`CREATE INDEX idx_splits_category ON transaction_splits(category_id)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					month_yyyymm TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					amount REAL NOT NULL,
					UNIQUE(month_yyyymm, category_id)
				)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add rules, goals, fx rates and attachments",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					when_json TEXT NOT NULL,
					set_json TEXT NOT NULL,
					priority INTEGER NOT NULL DEFAULT 100,
					enabled INTEGER NOT NULL DEFAULT 1
				)`,
				`CREATE INDEX idx_rules_priority ON rules(priority, id)`,

				`CREATE TABLE IF NOT EXISTS goals (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					target_amount REAL NOT NULL,
					target_date TEXT NOT NULL,
					created_at TEXT NOT NULL DEFAULT (date('now'))
				)`,

				`CREATE TABLE IF NOT EXISTS fx_rates (
					date TEXT NOT NULL,
					from_ccy TEXT NOT NULL,
					to_ccy TEXT NOT NULL,
					rate REAL NOT NULL,
					PRIMARY KEY(date, from_ccy, to_ccy)
				)`,

				`CREATE TABLE IF NOT EXISTS attachments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					path TEXT NOT NULL,
					mime_type TEXT NOT NULL DEFAULT '',
					added_at TEXT NOT NULL DEFAULT (datetime('now'))
				)`,
				`CREATE INDEX idx_attachments_transaction ON attachments(transaction_id)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Seed default cash account and add checkpoint metadata",
		Up: func(tx *sql.Tx) error {
			if err := execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					file_size INTEGER NOT NULL DEFAULT 0,
					row_counts TEXT NOT NULL DEFAULT '{}',
					schema_version INTEGER NOT NULL,
					is_auto INTEGER NOT NULL DEFAULT 0
				)`,
			}); err != nil {
				return err
			}

			var count int
			if err := tx.QueryRow(`SELECT COUNT(1) FROM accounts`).Scan(&count); err != nil {
				return fmt.Errorf("failed to count accounts: %w", err)
			}
			if count > 0 {
				return nil
			}
			if _, err := tx.Exec(
				`INSERT INTO accounts (name, type, currency, opening_balance) VALUES (?, ?, ?, 0)`,
				"Cash", "cash", "INR",
			); err != nil {
				return fmt.Errorf("failed to seed cash account: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
