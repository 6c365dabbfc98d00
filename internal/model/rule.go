package model

// DefaultRulePriority is assigned to rules created without an explicit priority.
const DefaultRulePriority = 100

// RuleMatch is the predicate half of a rule. Every set field must hold for the
// rule to match; a predicate with no fields matches everything.
type RuleMatch struct {
	MerchantRegex *string          `json:"merchant_regex,omitempty"`
	AmountMin     *float64         `json:"amount_min,omitempty"`
	AmountMax     *float64         `json:"amount_max,omitempty"`
	Type          *TransactionType `json:"type,omitempty"`
}

// Overrides is the set of split fields a rule assigns when it matches.
type Overrides struct {
	CategoryID *int64   `json:"category_id,omitempty"`
	Tags       *string  `json:"tags,omitempty"`
	TaxRate    *float64 `json:"tax_rate,omitempty"`
}

// Merge copies every field set in other over o.
func (o *Overrides) Merge(other Overrides) {
	if other.CategoryID != nil {
		id := *other.CategoryID
		o.CategoryID = &id
	}
	if other.Tags != nil {
		tags := *other.Tags
		o.Tags = &tags
	}
	if other.TaxRate != nil {
		rate := *other.TaxRate
		o.TaxRate = &rate
	}
}

// IsEmpty reports whether no override field is set.
func (o Overrides) IsEmpty() bool {
	return o.CategoryID == nil && o.Tags == nil && o.TaxRate == nil
}

// Rule is a user-defined classification rule. Priority is an application
// order: rules run from the smallest number up, and later matches overwrite
// earlier ones field by field, so the largest matching priority wins.
type Rule struct {
	When     RuleMatch `json:"when"`
	Set      Overrides `json:"set"`
	ID       int64     `json:"id"`
	Priority int       `json:"priority"`
	Enabled  bool      `json:"enabled"`
}
