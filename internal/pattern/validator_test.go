package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestStaleReferences(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Set: model.Overrides{CategoryID: intPtr(5)}},
		{ID: 2, Set: model.Overrides{CategoryID: intPtr(99)}},
		{ID: 3, Set: model.Overrides{Tags: strPtr("no category")}},
	}

	stale := StaleReferences(rules, []int64{5, 6})

	assert.Equal(t, []StaleReference{{RuleID: 2, CategoryID: 99}}, stale)
	assert.Equal(t, "rule 2 references missing category 99", stale[0].String())
	assert.Empty(t, StaleReferences(rules[:1], []int64{5}))
}
