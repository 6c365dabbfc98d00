// Package pattern provides rule-based classification of transactions and splits.
package pattern

import (
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Classifier produces field overrides for a candidate record.
type Classifier interface {
	// Classify evaluates every rule against c and returns the merged overrides.
	Classify(c Candidate) model.Overrides
}

// Candidate is the record a rule predicate is evaluated against: a whole
// transaction, or one split of it with Amount set to the split amount.
type Candidate struct {
	Date     string
	Type     model.TransactionType
	Merchant string
	Notes    string
	Amount   float64
}
