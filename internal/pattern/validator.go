package pattern

import (
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// StaleReference is a rule whose override names a category that no longer exists.
type StaleReference struct {
	RuleID     int64 `json:"rule_id"`
	CategoryID int64 `json:"category_id"`
}

func (s StaleReference) String() string {
	return fmt.Sprintf("rule %d references missing category %d", s.RuleID, s.CategoryID)
}

// StaleReferences reports every rule in rules whose category override is not
// among categoryIDs. Rules are never rewritten; reconciling them is left to
// the caller.
func StaleReferences(rules []model.Rule, categoryIDs []int64) []StaleReference {
	known := make(map[int64]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		known[id] = struct{}{}
	}

	var stale []StaleReference
	for _, rule := range rules {
		if rule.Set.CategoryID == nil {
			continue
		}
		if _, ok := known[*rule.Set.CategoryID]; !ok {
			stale = append(stale, StaleReference{RuleID: rule.ID, CategoryID: *rule.Set.CategoryID})
		}
	}
	return stale
}
