package ledger

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

var budgetMonth = regexp.MustCompile(`^\d{6}$`)

// ValidateMonth checks that month is a YYYYMM string naming a real month.
func ValidateMonth(month string) error {
	_, _, err := MonthBounds(month)
	return err
}

// MonthBounds returns the first and last calendar day of a YYYYMM month as
// canonical dates.
func MonthBounds(month string) (string, string, error) {
	if !budgetMonth.MatchString(month) {
		return "", "", common.Validationf("month_yyyymm must be YYYYMM")
	}
	y, _ := strconv.Atoi(month[:4])
	m, _ := strconv.Atoi(month[4:])
	if m < 1 || m > 12 {
		return "", "", common.Validationf("month_yyyymm must be YYYYMM")
	}

	start := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start.Format(CanonicalDateLayout), end.Format(CanonicalDateLayout), nil
}

// ParseTransactionType validates s as a transaction type name.
func ParseTransactionType(s string) (model.TransactionType, error) {
	t := model.TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", common.Validationf("type must be 'expense'|'income'|'transfer'")
	}
	return t, nil
}
