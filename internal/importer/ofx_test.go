package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatementOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>POS PURCHASE STARBUCKS
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>1500.00
<FITID>2024012001
<NAME>ACME PAYROLL
<MEMO>January salary
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-60.00
<FITID>2024012501
<NAME>PURCHASE
<MEMO>DEBIT CARD PURCHASE CORNER BOOKS
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestImportOFX_Preview(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.BasicCategories)

	result, err := New(db.Storage).ImportOFX(context.Background(), strings.NewReader(sampleStatementOFX), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Preview, 3)

	debit := result.Preview[0]
	assert.Equal(t, 1, debit.Row)
	assert.Equal(t, "2024-01-15", debit.Date)
	assert.Equal(t, model.TypeExpense, debit.Type)
	assert.InDelta(t, 25.50, debit.Amount, 0.001)
	assert.Equal(t, "STARBUCKS", debit.Merchant)

	credit := result.Preview[1]
	assert.Equal(t, model.TypeIncome, credit.Type)
	assert.InDelta(t, 1500.0, credit.Amount, 0.001)
	assert.Equal(t, "ACME PAYROLL", credit.Merchant)
	assert.Equal(t, "January salary", credit.Notes)

	generic := result.Preview[2]
	assert.Equal(t, "CORNER BOOKS", generic.Merchant)
	assert.Equal(t, "DEBIT CARD PURCHASE CORNER BOOKS", generic.Notes)
}

func TestOFXCandidate_KeepsExactAmount(t *testing.T) {
	tests := []struct {
		name     string
		trnAmt   string
		wantAmt  string
		wantType model.TransactionType
	}{
		{name: "three decimals", trnAmt: "-12.345", wantAmt: "12.345", wantType: model.TypeExpense},
		{name: "large credit", trnAmt: "1234567.891", wantAmt: "1234567.891", wantType: model.TypeIncome},
		{name: "trailing zeros", trnAmt: "-60.00", wantAmt: "60", wantType: model.TypeExpense},
		{name: "zero", trnAmt: "0", wantAmt: "0", wantType: model.TypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tx ofxgo.Transaction
			_, ok := tx.TrnAmt.SetString(tt.trnAmt)
			require.True(t, ok)
			tx.DtPosted = ofxgo.Date{Time: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
			tx.Name = "SHOP"

			c := ofxCandidate(tx)
			assert.Equal(t, tt.wantAmt, c.Amount)
			assert.Equal(t, tt.wantType, c.Type)
			assert.Equal(t, "2024-01-15", c.Date)
		})
	}
}

func TestImportOFX_CommitAppliesRules(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.BasicCategories)
	ctx := context.Background()
	salary := db.MustCategoryID("Income/Salary")

	_, err := db.Storage.AddRule(ctx, model.Rule{
		When:     model.RuleMatch{MerchantRegex: ptr("payroll"), Type: ptr(model.TypeIncome)},
		Set:      model.Overrides{CategoryID: &salary},
		Priority: model.DefaultRulePriority,
		Enabled:  true,
	})
	require.NoError(t, err)

	result, err := New(db.Storage).ImportOFX(ctx, strings.NewReader(sampleStatementOFX), commitOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)

	rows, err := db.Storage.ExportRows(ctx, "2024-01-20", "2024-01-20")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CategoryID)
	assert.Equal(t, salary, *rows[0].CategoryID)
	assert.Equal(t, model.TypeIncome, rows[0].Type)
}

func TestImportOFX_Malformed(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)

	_, err := New(db.Storage).ImportOFX(context.Background(), strings.NewReader("not an ofx document"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse OFX file")
}

func TestPreprocessOFX(t *testing.T) {
	in := "\n\n  <SEVERITY>Warn</SEVERITY>\n<CODE\n"
	out := preprocessOFX(in)
	assert.Equal(t, "<SEVERITY>WARN</SEVERITY>\n<CODE>\n", out)
}

func TestMerchantName(t *testing.T) {
	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{
			name:     "strips card prefix",
			tx:       ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"},
			expected: "STARBUCKS",
		},
		{
			name:     "keeps clean name",
			tx:       ofxgo.Transaction{Name: "NETFLIX.COM"},
			expected: "NETFLIX.COM",
		},
		{
			name:     "trims whitespace",
			tx:       ofxgo.Transaction{Name: "  AMAZON.COM  "},
			expected: "AMAZON.COM",
		},
		{
			name:     "strips leading date stamp",
			tx:       ofxgo.Transaction{Name: "PURCHASE AUTHORIZED ON 01/15 BLUE BOTTLE"},
			expected: "BLUE BOTTLE",
		},
		{
			name:     "prefers payee",
			tx:       ofxgo.Transaction{Name: "POS 1234", Payee: &ofxgo.Payee{Name: "Local Bakery"}},
			expected: "Local Bakery",
		},
		{
			name:     "generic name falls back to memo",
			tx:       ofxgo.Transaction{Name: "payment", Memo: "City Water"},
			expected: "City Water",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, merchantName(tt.tx))
		})
	}
}
