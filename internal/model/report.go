package model

// BudgetLine is one category's row in a monthly budget summary.
type BudgetLine struct {
	BudgetAmount *float64 `json:"budget_amount"`
	CategoryName string   `json:"category_name"`
	ActualSpent  float64  `json:"actual_spent"`
	Variance     float64  `json:"variance"`
	CategoryID   int64    `json:"category_id"`
}

// SummaryRow is one group of a general summary.
type SummaryRow struct {
	Key   *string `json:"key"`
	Total float64 `json:"total"`
}

// MonthlyNet is one month of income/expense history.
type MonthlyNet struct {
	Month   string  `json:"ym"`
	Income  float64 `json:"inc"`
	Expense float64 `json:"exp"`
	Net     float64 `json:"net"`
}

// LedgerRow is a transaction joined with one of its splits, its category and
// its account. Transactions without splits produce a single row with nil split fields.
type LedgerRow struct {
	AccountID     *int64          `json:"account_id,omitempty"`
	AccountName   *string         `json:"account_name"`
	SplitID       *int64          `json:"split_id"`
	Amount        *float64        `json:"amount"`
	TaxRate       *float64        `json:"tax_rate"`
	TaxAmount     *float64        `json:"tax_amount"`
	Tags          *string         `json:"tags"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	CategoryName  *string         `json:"category_name"`
	Date          string          `json:"date"`
	Type          TransactionType `json:"type"`
	Merchant      string          `json:"merchant"`
	Notes         string          `json:"notes"`
	Currency      string          `json:"currency"`
	GrossAmount   float64         `json:"gross_amount"`
	TransactionID int64           `json:"transaction_id"`
}
