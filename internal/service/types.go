package service

import (
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// TransactionInput is a new transaction as supplied by a caller. Date and
// amount are raw and get normalized by the store.
type TransactionInput struct {
	AccountID  *int64           `json:"account_id"`
	ApplyRules *bool            `json:"apply_rules"`
	Date       string           `json:"date"`
	Amount     ledger.RawAmount `json:"amount"`
	Type       string           `json:"type"`
	Currency   string           `json:"currency"`
	Merchant   string           `json:"merchant"`
	Notes      string           `json:"notes"`
	Splits     []SplitInput     `json:"splits"`
}

// RulesEnabled reports whether classification rules should run. Rules run
// unless the caller explicitly turned them off.
func (in TransactionInput) RulesEnabled() bool {
	return in.ApplyRules == nil || *in.ApplyRules
}

// SplitInput is one caller-supplied split.
type SplitInput struct {
	CategoryID *int64           `json:"category_id"`
	Amount     ledger.RawAmount `json:"amount"`
	Tags       string           `json:"tags"`
	TaxRate    float64          `json:"tax_rate"`
}

// ImportRow is a fully resolved row from a bulk import, persisted as one
// transaction owning exactly one split.
type ImportRow struct {
	AccountID  *int64                `json:"account_id,omitempty"`
	CategoryID *int64                `json:"category_id"`
	Date       string                `json:"date"`
	Type       model.TransactionType `json:"type"`
	Currency   string                `json:"currency"`
	Merchant   string                `json:"merchant"`
	Notes      string                `json:"notes"`
	Tags       string                `json:"tags"`
	Amount     float64               `json:"amount"`
	TaxRate    float64               `json:"tax_rate"`
	TaxAmount  float64               `json:"tax_amount"`
}

// TransactionFilter defines filtering options for transaction searches.
// Zero values leave a dimension unfiltered.
type TransactionFilter struct {
	AccountID  *int64   `json:"account_id"`
	CategoryID *int64   `json:"category_id"`
	MinAmount  *float64 `json:"min_amount"`
	MaxAmount  *float64 `json:"max_amount"`
	Query      string   `json:"q"`
	Tags       string   `json:"tags"`
	Merchant   string   `json:"merchant"`
	Type       string   `json:"type"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Limit      int      `json:"limit"`
	Offset     int      `json:"offset"`
}

// DefaultSearchLimit caps a search when the caller gives no limit.
const DefaultSearchLimit = 100

// BudgetFilter selects budgets for deletion. Exactly one mode applies:
// month and category, month only, category only, or everything.
type BudgetFilter struct {
	Month      *string `json:"month_yyyymm"`
	CategoryID *int64  `json:"category_id"`
	All        bool    `json:"delete_all"`
}

// BudgetDeletion reports the outcome of DeleteBudgets.
type BudgetDeletion struct {
	Month      *string `json:"month_yyyymm"`
	CategoryID *int64  `json:"category_id"`
	Mode       string  `json:"mode"`
	Deleted    int64   `json:"deleted"`
}

// DeleteCategoryOptions controls a category deletion.
type DeleteCategoryOptions struct {
	// ReassignTo repoints splits of every deleted category here first.
	ReassignTo *int64 `json:"reassign_to_id"`
	// SingleNode deletes only the target; its children become roots.
	SingleNode bool `json:"single_node"`
}

// CategoryDeletion reports the outcome of DeleteCategory.
type CategoryDeletion struct {
	ReassignedTo        *int64  `json:"reassigned_to"`
	AffectedCategoryIDs []int64 `json:"affected_category_ids"`
	DeletedCategories   int64   `json:"deleted_categories"`
	ReassignedSplits    int64   `json:"reassigned_splits"`
}

// AccountDeletion reports the outcome of DeleteAccount.
type AccountDeletion struct {
	ReassignedTo           *int64 `json:"reassigned_to"`
	Deleted                int64  `json:"deleted"`
	ReassignedTransactions int64  `json:"reassigned_transactions"`
	AccountID              int64  `json:"account_id"`
}

// SeedResult reports the outcome of seeding categories from definitions.
type SeedResult struct {
	ParentsProcessed  int  `json:"parents_processed"`
	ChildrenProcessed int  `json:"children_processed"`
	Reset             bool `json:"reset"`
}

// Summary groupings.
const (
	GroupByCategory = "category"
	GroupByMonth    = "month"
	GroupByMerchant = "merchant"
	GroupByAccount  = "account"
	GroupByType     = "type"
)

// GroupBys lists every supported summary grouping.
var GroupBys = []string{GroupByCategory, GroupByMonth, GroupByMerchant, GroupByAccount, GroupByType}
