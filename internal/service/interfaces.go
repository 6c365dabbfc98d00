// Package service defines the contracts shared between the store and the
// components built on it.
package service

import (
	"context"

	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// AccountStore manages accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account model.Account) (int64, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	DeleteAccount(ctx context.Context, id int64, reassignTo *int64) (AccountDeletion, error)
}

// CategoryStore manages the category forest.
type CategoryStore interface {
	CreateCategory(ctx context.Context, name string, parentID *int64) (int64, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListRootCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id int64, opts DeleteCategoryOptions) (CategoryDeletion, error)
	SeedCategories(ctx context.Context, defs model.CategoryDefinitions, reset bool) (SeedResult, error)
}

// TransactionStore manages transactions and their splits and attachments.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, in TransactionInput) (int64, error)
	GetTransaction(ctx context.Context, id int64) (*model.TransactionDetail, error)
	UpdateTransaction(ctx context.Context, id int64, patch map[string]any) (int64, error)
	DeleteTransaction(ctx context.Context, id int64) (int64, error)
	AddSplit(ctx context.Context, transactionID int64, split SplitInput) (int64, error)
	DeleteSplit(ctx context.Context, splitID int64) (int64, error)
	SearchTransactions(ctx context.Context, filter TransactionFilter) ([]model.LedgerRow, error)
	AddAttachment(ctx context.Context, transactionID int64, path, mimeType string) (*model.Attachment, error)
	ListAttachments(ctx context.Context, transactionID int64) ([]model.Attachment, error)
}

// ImportStore persists rows produced by a bulk import.
type ImportStore interface {
	SaveImportRow(ctx context.Context, row ImportRow) (int64, error)
	LoadEnabledRules(ctx context.Context) ([]model.Rule, error)
	ListRootCategories(ctx context.Context) ([]model.Category, error)
}

// ExportStore reads the joined ledger view for export.
type ExportStore interface {
	ExportRows(ctx context.Context, startDate, endDate string) ([]model.LedgerRow, error)
}

// PlanningStore manages budgets, goals and fx rates.
type PlanningStore interface {
	SetBudget(ctx context.Context, month string, categoryID int64, amount ledger.RawAmount) error
	ListBudgets(ctx context.Context, month string) ([]model.Budget, error)
	DeleteBudgets(ctx context.Context, filter BudgetFilter) (BudgetDeletion, error)
	SetGoal(ctx context.Context, name string, target ledger.RawAmount, targetDate string) error
	GetGoal(ctx context.Context, name string) (*model.Goal, error)
	ListGoals(ctx context.Context) ([]model.Goal, error)
	DeleteGoals(ctx context.Context, name string, all bool) (int64, error)
	SetFxRate(ctx context.Context, rate model.FxRate) error
	GetFxRate(ctx context.Context, date, from, to string) (*model.FxRate, error)
	ListFxRates(ctx context.Context) ([]model.FxRate, error)
}

// RuleStore manages classification rules.
type RuleStore interface {
	AddRule(ctx context.Context, rule model.Rule) (int64, error)
	ListRules(ctx context.Context) ([]model.Rule, error)
	RemoveRule(ctx context.Context, id int64) (int64, error)
	LoadEnabledRules(ctx context.Context) ([]model.Rule, error)
}

// ReportStore answers the aggregate queries behind budgets, summaries,
// goal progress and forecasts. Dates are canonical and bounds inclusive.
type ReportStore interface {
	BudgetRows(ctx context.Context, month, startDate, endDate string) ([]model.BudgetLine, error)
	SummaryRows(ctx context.Context, startDate, endDate, groupBy string) ([]model.SummaryRow, error)
	TypeTotals(ctx context.Context, startDate, endDate string) (income, expense float64, err error)
	MonthlyNets(ctx context.Context, since string) ([]model.MonthlyNet, error)
	GetGoal(ctx context.Context, name string) (*model.Goal, error)
}

// Storage is the complete ledger store.
type Storage interface {
	AccountStore
	CategoryStore
	TransactionStore
	ImportStore
	ExportStore
	PlanningStore
	RuleStore
	ReportStore

	Migrate(ctx context.Context) error
	Close() error
}
