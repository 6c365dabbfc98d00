// Package ledger holds the input coercion rules shared by every ledger
// operation: canonical dates, decimal amounts, budget months and tax rounding.
package ledger

import (
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// CanonicalDateLayout is the only date form ever written to the store.
const CanonicalDateLayout = "2006-01-02"

// DateLayouts lists the accepted non-canonical layouts in resolution order.
// The first layout that parses wins, so an ambiguous value such as 03/04/2024
// is read day-first (3 April 2024). Changing this order changes stored data.
var DateLayouts = []string{
	"2006/1/2", // YYYY/MM/DD
	"2-1-2006", // DD-MM-YYYY
	"2/1/2006", // DD/MM/YYYY
	"1-2-2006", // MM-DD-YYYY
	"1/2/2006", // MM/DD/YYYY
}

var canonicalDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeDate converts s to YYYY-MM-DD. After the layouts in DateLayouts it
// falls back to reading the first ten characters as an ISO date, which accepts
// full timestamps such as 2024-01-05T10:30:00Z.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)

	if canonicalDate.MatchString(s) {
		if _, err := time.Parse(CanonicalDateLayout, s); err != nil {
			return "", invalidDate(s)
		}
		return s, nil
	}

	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(CanonicalDateLayout), nil
		}
	}

	if len(s) >= 10 {
		if t, err := time.Parse(CanonicalDateLayout, s[:10]); err == nil {
			return t.Format(CanonicalDateLayout), nil
		}
	}

	return "", invalidDate(s)
}

// NormalizeOptionalDate normalizes s unless it is empty.
func NormalizeOptionalDate(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return NormalizeDate(s)
}

func invalidDate(s string) error {
	return common.Validationf("invalid date format: %s. Use YYYY-MM-DD", s)
}
