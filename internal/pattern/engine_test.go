package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int64) *int64       { return &i }
func floatPtr(f float64) *float64 { return &f }
func typePtr(t model.TransactionType) *model.TransactionType {
	return &t
}

func TestEngine_HigherPriorityNumberWins(t *testing.T) {
	rules := []model.Rule{
		{ID: 2, Priority: 20, Enabled: true, When: model.RuleMatch{MerchantRegex: strPtr("AMZN")}, Set: model.Overrides{CategoryID: intPtr(7)}},
		{ID: 1, Priority: 10, Enabled: true, When: model.RuleMatch{MerchantRegex: strPtr("AMZN")}, Set: model.Overrides{CategoryID: intPtr(5)}},
	}

	got := NewEngine(rules).Classify(Candidate{Merchant: "AMZN MKTP", Amount: 10, Type: model.TypeExpense})

	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(7), *got.CategoryID)
}

func TestEngine_FieldsMergeAcrossRules(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Priority: 10, Enabled: true, Set: model.Overrides{CategoryID: intPtr(5), Tags: strPtr("shopping")}},
		{ID: 2, Priority: 20, Enabled: true, When: model.RuleMatch{MerchantRegex: strPtr("amzn")}, Set: model.Overrides{TaxRate: floatPtr(18)}},
	}

	got := NewEngine(rules).Classify(Candidate{Merchant: "AMZN MKTP"})

	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(5), *got.CategoryID)
	require.NotNil(t, got.Tags)
	assert.Equal(t, "shopping", *got.Tags)
	require.NotNil(t, got.TaxRate)
	assert.InDelta(t, 18.0, *got.TaxRate, 1e-9)
}

func TestEngine_TiesKeepLoadOrder(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Priority: 100, Enabled: true, Set: model.Overrides{CategoryID: intPtr(1)}},
		{ID: 2, Priority: 100, Enabled: true, Set: model.Overrides{CategoryID: intPtr(2)}},
		{ID: 3, Priority: 100, Enabled: true, Set: model.Overrides{CategoryID: intPtr(3)}},
	}

	e := NewEngine(rules)
	got := e.Classify(Candidate{})

	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(3), *got.CategoryID)
	ids := make([]int64, 0, len(e.Rules()))
	for _, r := range e.Rules() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestEngine_InvalidRegexSkipped(t *testing.T) {
	rules := []model.Rule{
		{ID: 1, Priority: 50, Enabled: true, When: model.RuleMatch{MerchantRegex: strPtr("([")}, Set: model.Overrides{CategoryID: intPtr(9)}},
		{ID: 2, Priority: 10, Enabled: true, When: model.RuleMatch{MerchantRegex: strPtr("coffee")}, Set: model.Overrides{CategoryID: intPtr(4)}},
	}

	e := NewEngine(rules)
	got := e.Classify(Candidate{Merchant: "Blue Tokai Coffee"})

	assert.Len(t, e.Rules(), 1)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(4), *got.CategoryID)
}

func TestEngine_UnsavedRulesKeepTheirOwnRegex(t *testing.T) {
	rules := []model.Rule{
		{Priority: 10, Enabled: true, When: model.RuleMatch{MerchantRegex: strPtr("coffee")}, Set: model.Overrides{CategoryID: intPtr(4)}},
		{Priority: 20, Enabled: true, When: model.RuleMatch{MerchantRegex: strPtr("fuel")}, Set: model.Overrides{Tags: strPtr("car")}},
	}
	e := NewEngine(rules)

	coffee := e.Classify(Candidate{Merchant: "Corner Coffee"})
	require.NotNil(t, coffee.CategoryID)
	assert.Equal(t, int64(4), *coffee.CategoryID)
	assert.Nil(t, coffee.Tags)

	fuel := e.Classify(Candidate{Merchant: "Shell Fuel"})
	assert.Nil(t, fuel.CategoryID)
	require.NotNil(t, fuel.Tags)
	assert.Equal(t, "car", *fuel.Tags)
}

func TestEngine_Predicates(t *testing.T) {
	tests := []struct {
		when      model.RuleMatch
		name      string
		candidate Candidate
		want      bool
	}{
		{name: "empty predicate matches everything", want: true},
		{name: "regex is a substring search", when: model.RuleMatch{MerchantRegex: strPtr("swig")}, candidate: Candidate{Merchant: "Order via SWIGGY"}, want: true},
		{name: "regex miss", when: model.RuleMatch{MerchantRegex: strPtr("^uber")}, candidate: Candidate{Merchant: "ola uber"}, want: false},
		{name: "amount within bounds", when: model.RuleMatch{AmountMin: floatPtr(10), AmountMax: floatPtr(20)}, candidate: Candidate{Amount: 20}, want: true},
		{name: "amount below min", when: model.RuleMatch{AmountMin: floatPtr(10)}, candidate: Candidate{Amount: 9.99}, want: false},
		{name: "amount above max", when: model.RuleMatch{AmountMax: floatPtr(10)}, candidate: Candidate{Amount: 10.01}, want: false},
		{name: "type equal", when: model.RuleMatch{Type: typePtr(model.TypeIncome)}, candidate: Candidate{Type: model.TypeIncome}, want: true},
		{name: "type differs", when: model.RuleMatch{Type: typePtr(model.TypeIncome)}, candidate: Candidate{Type: model.TypeExpense}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine([]model.Rule{{ID: 1, Enabled: true, When: tt.when, Set: model.Overrides{Tags: strPtr("hit")}}})
			got := e.Classify(tt.candidate)
			assert.Equal(t, tt.want, got.Tags != nil)
		})
	}
}

func TestEngine_DisabledRulesIgnored(t *testing.T) {
	e := NewEngine([]model.Rule{{ID: 1, Enabled: false, Set: model.Overrides{CategoryID: intPtr(1)}}})
	assert.True(t, e.Classify(Candidate{}).IsEmpty())
}

func TestResolve(t *testing.T) {
	rules := model.Overrides{CategoryID: intPtr(7), Tags: strPtr("rule"), TaxRate: floatPtr(18)}

	t.Run("rule category replaces explicit one and fills blanks", func(t *testing.T) {
		r := Resolve(rules, intPtr(3), "", 0, 100)
		require.NotNil(t, r.CategoryID)
		assert.Equal(t, int64(7), *r.CategoryID)
		assert.Equal(t, "rule", r.Tags)
		assert.InDelta(t, 18.0, r.TaxRate, 1e-9)
		assert.InDelta(t, 18.0, r.TaxAmount, 1e-9)
	})

	t.Run("explicit tags and tax rate survive", func(t *testing.T) {
		r := Resolve(rules, nil, "mine", 5, 50)
		assert.Equal(t, "mine", r.Tags)
		assert.InDelta(t, 5.0, r.TaxRate, 1e-9)
		assert.InDelta(t, 2.5, r.TaxAmount, 1e-9)
	})

	t.Run("no overrides keeps inputs", func(t *testing.T) {
		r := Resolve(model.Overrides{}, intPtr(3), "", 0, 50)
		require.NotNil(t, r.CategoryID)
		assert.Equal(t, int64(3), *r.CategoryID)
		assert.Empty(t, r.Tags)
		assert.Zero(t, r.TaxAmount)
	})
}
