// Package model defines the core data structures for the ledger.
package model

// TransactionType classifies the cash movement of a transaction.
type TransactionType string

// Transaction types.
const (
	TypeExpense  TransactionType = "expense"
	TypeIncome   TransactionType = "income"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeExpense, TypeIncome, TypeTransfer:
		return true
	}
	return false
}

// Transaction is the unit of cash movement. Amount is the ledger-level gross;
// the analytic breakdown lives in its splits and may not sum to it.
type Transaction struct {
	AccountID *int64          `json:"account_id"`
	Date      string          `json:"date"`
	Currency  string          `json:"currency"`
	Type      TransactionType `json:"type"`
	Merchant  string          `json:"merchant"`
	Notes     string          `json:"notes"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Amount    float64         `json:"amount"`
	ID        int64           `json:"id"`
}

// Split is one categorized slice of a transaction.
type Split struct {
	CategoryID    *int64  `json:"category_id"`
	CategoryName  *string `json:"category_name,omitempty"`
	Tags          string  `json:"tags"`
	Amount        float64 `json:"amount"`
	TaxRate       float64 `json:"tax_rate"`
	TaxAmount     float64 `json:"tax_amount"`
	ID            int64   `json:"id"`
	TransactionID int64   `json:"transaction_id"`
}

// Attachment links a file on disk to a transaction. Only the path is stored.
type Attachment struct {
	Path          string `json:"path"`
	MimeType      string `json:"mime_type"`
	AddedAt       string `json:"added_at"`
	ID            int64  `json:"id"`
	TransactionID int64  `json:"transaction_id"`
}

// TransactionDetail is a transaction together with everything it owns.
type TransactionDetail struct {
	Splits      []Split      `json:"splits"`
	Attachments []Attachment `json:"attachments"`
	Transaction Transaction  `json:"transaction"`
}
