package model

// Budget is a planned limit for one category in one calendar month.
type Budget struct {
	Month      string  `json:"month_yyyymm"`
	Amount     float64 `json:"amount"`
	ID         int64   `json:"id"`
	CategoryID int64   `json:"category_id"`
}

// Goal is a savings target. Progress is computed on demand, never stored.
type Goal struct {
	Name         string  `json:"name"`
	TargetDate   string  `json:"target_date"`
	CreatedAt    string  `json:"created_at"`
	TargetAmount float64 `json:"target_amount"`
	ID           int64   `json:"id"`
}

// FxRate is one entry of the currency rate reference table.
type FxRate struct {
	Date string  `json:"date"`
	From string  `json:"from_ccy"`
	To   string  `json:"to_ccy"`
	Rate float64 `json:"rate"`
}
