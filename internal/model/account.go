package model

// Account is a place money lives: cash, a bank account, a card.
type Account struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Currency       string  `json:"currency"`
	CreatedAt      string  `json:"created_at"`
	OpeningBalance float64 `json:"opening_balance"`
	ID             int64   `json:"id"`
}

// Default account attributes.
const (
	DefaultAccountType = "cash"
	DefaultCurrency    = "INR"
)
