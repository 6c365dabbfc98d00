package pattern

import (
	"log/slog"
	"regexp"
	"sort"

	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Engine evaluates classification rules in application order.
type Engine struct {
	entries []ruleEntry
}

// ruleEntry pairs a rule with its compiled merchant regex, if any.
type ruleEntry struct {
	merchant *regexp.Regexp
	rule     model.Rule
}

// NewEngine builds an engine over the enabled rules in rules. Rules are
// ordered by priority ascending; rules sharing a priority keep the order they
// were given in. A rule whose merchant regex does not compile is skipped.
func NewEngine(rules []model.Rule) *Engine {
	e := &Engine{}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		entry := ruleEntry{rule: rule}
		if rule.When.MerchantRegex != nil {
			re, err := regexp.Compile("(?i)" + *rule.When.MerchantRegex)
			if err != nil {
				slog.Warn("Skipping rule with invalid merchant regex",
					"rule_id", rule.ID,
					"regex", *rule.When.MerchantRegex,
					"error", err)
				continue
			}
			entry.merchant = re
		}
		e.entries = append(e.entries, entry)
	}

	sort.SliceStable(e.entries, func(i, j int) bool {
		return e.entries[i].rule.Priority < e.entries[j].rule.Priority
	})

	return e
}

// Rules returns the active rules in application order.
func (e *Engine) Rules() []model.Rule {
	rules := make([]model.Rule, len(e.entries))
	for i, entry := range e.entries {
		rules[i] = entry.rule
	}
	return rules
}

// Classify merges the overrides of every matching rule. Later rules overwrite
// earlier ones field by field, so on conflict the highest priority number wins.
func (e *Engine) Classify(c Candidate) model.Overrides {
	var acc model.Overrides
	for _, entry := range e.entries {
		if entry.matches(c) {
			acc.Merge(entry.rule.Set)
		}
	}
	return acc
}

func (r ruleEntry) matches(c Candidate) bool {
	w := r.rule.When

	if r.merchant != nil && !r.merchant.MatchString(c.Merchant) {
		return false
	}
	if w.AmountMin != nil && c.Amount < *w.AmountMin {
		return false
	}
	if w.AmountMax != nil && c.Amount > *w.AmountMax {
		return false
	}
	if w.Type != nil && c.Type != *w.Type {
		return false
	}

	return true
}

// Resolution is the outcome of applying rule overrides to a split that may
// already carry caller-supplied values.
type Resolution struct {
	CategoryID *int64
	Tags       string
	TaxRate    float64
	TaxAmount  float64
}

// Resolve applies overrides to explicit split values. A rule category always
// replaces the supplied one; rule tags and tax rate only fill values the
// caller left empty. The tax amount is derived against amount.
func Resolve(o model.Overrides, categoryID *int64, tags string, taxRate, amount float64) Resolution {
	r := Resolution{CategoryID: categoryID, Tags: tags, TaxRate: taxRate}

	if o.CategoryID != nil {
		id := *o.CategoryID
		r.CategoryID = &id
	}
	if r.Tags == "" && o.Tags != nil {
		r.Tags = *o.Tags
	}
	if r.TaxRate == 0 && o.TaxRate != nil {
		r.TaxRate = *o.TaxRate
	}

	r.TaxAmount = ledger.TaxAmount(amount, r.TaxRate)
	return r
}
