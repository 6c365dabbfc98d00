package ledger

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// groupedAmount matches amounts whose commas are well-formed thousands groups.
var groupedAmount = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// RawAmount carries an amount exactly as the caller supplied it. It decodes
// from either a JSON number or a JSON string so validation happens in one place.
type RawAmount string

// UnmarshalJSON accepts numbers, strings and null.
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = RawAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return common.Validationf("invalid amount: %s", string(data))
	}
	*a = RawAmount(n.String())
	return nil
}

// ParseDecimal parses v as a decimal amount. Strings may carry surrounding
// whitespace and thousands separators (1,234.50).
func ParseDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case json.Number:
		return parseDecimalString(x.String())
	case RawAmount:
		return parseDecimalString(string(x))
	case string:
		return parseDecimalString(x)
	case nil:
		return decimal.Zero, common.Validationf("invalid amount: <nil>")
	default:
		return decimal.Zero, common.Validationf("invalid amount: %v", v)
	}
}

func parseDecimalString(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	if strings.Contains(cleaned, ",") {
		if !groupedAmount.MatchString(cleaned) {
			return decimal.Zero, common.Validationf("invalid amount: %s", s)
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, common.Validationf("invalid amount: %s", s)
	}
	return d, nil
}

// ParseAmount parses v as a decimal amount and returns it as the float64
// stored in the ledger.
func ParseAmount(v any) (float64, error) {
	d, err := ParseDecimal(v)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// TaxAmount derives the tax on amount at rate percent, rounded to two places.
func TaxAmount(amount, rate float64) float64 {
	if rate == 0 {
		return 0
	}
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// Round2 rounds f to two decimal places.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// FormatAmount renders f with two decimals for human output.
func FormatAmount(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
