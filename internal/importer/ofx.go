package importer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityPattern    = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	unclosedTagPattern = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// ofxAmountScale bounds the fractional digits read from TRNAMT.
const ofxAmountScale = 8

var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericDescriptions = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// ImportOFX reads bank and credit card statements from an OFX or QFX
// document. Debits become expenses and credits income, both stored as
// positive amounts. The statement memo is kept as notes.
func (im *Importer) ImportOFX(ctx context.Context, r io.Reader, opts Options) (Result, error) {
	txns, err := parseOFX(r)
	if err != nil {
		return Result{}, err
	}

	i := 0
	next := func() (candidate, error) {
		if i >= len(txns) {
			return candidate{}, io.EOF
		}
		c := ofxCandidate(txns[i])
		i++
		c.Row = i
		return c, nil
	}

	return im.run(ctx, "ofx", next, opts)
}

// parseOFX returns every statement transaction in document order.
func parseOFX(r io.Reader) ([]ofxgo.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var txns []ofxgo.Transaction
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			txns = append(txns, stmt.BankTranList.Transactions...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			txns = append(txns, stmt.BankTranList.Transactions...)
		}
	}
	return txns, nil
}

// preprocessOFX repairs the SGML quirks some banks emit.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagPattern.ReplaceAllString(content, "$1>")
}

// ofxCandidate keeps TRNAMT exact; the sign picks the type and the
// magnitude becomes the amount.
func ofxCandidate(tx ofxgo.Transaction) candidate {
	txType := model.TypeExpense
	if tx.TrnAmt.Sign() > 0 {
		txType = model.TypeIncome
	}
	amount := decimal.RequireFromString(tx.TrnAmt.FloatString(ofxAmountScale)).Abs()

	return candidate{
		Date:     tx.DtPosted.Time.Format(ledger.CanonicalDateLayout),
		Amount:   amount.String(),
		Type:     txType,
		Merchant: merchantName(tx),
		Notes:    strings.TrimSpace(string(tx.Memo)),
	}
}

// merchantName prefers the payee, then the name, then the memo when the name
// is generic, and strips card-network prefixes and leading MM/DD stamps.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && genericDescriptions[strings.ToUpper(name)] {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}
