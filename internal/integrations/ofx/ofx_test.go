package ofx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bankStatement = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<?OFX OFXHEADER="200" VERSION="220" SECURITY="NONE" OLDFILEUID="NONE" NEWFILEUID="NONE"?>
<OFX>
  <BANKMSGSRSV1>
    <STMTTRNRS>
      <TRNUID>1</TRNUID>
      <STMTRS>
        <CURDEF>USD</CURDEF>
        <BANKACCTFROM>
          <BANKID>121000358</BANKID>
          <ACCTID>000123456</ACCTID>
          <ACCTTYPE>CHECKING</ACCTTYPE>
        </BANKACCTFROM>
        <BANKTRANLIST>
          <DTSTART>20261001</DTSTART>
          <DTEND>20261015</DTEND>
          <STMTTRN>
            <TRNTYPE>DIRECTDEP</TRNTYPE>
            <DTPOSTED>20261010120000.000[-5:EST]</DTPOSTED>
            <TRNAMT>2150.00</TRNAMT>
            <FITID>F1</FITID>
            <NAME>ACME PAYROLL</NAME>
          </STMTTRN>
          <STMTTRN>
            <TRNTYPE>DEBIT</TRNTYPE>
            <DTPOSTED>20261012</DTPOSTED>
            <TRNAMT>-42,50</TRNAMT>
            <FITID>F2</FITID>
            <PAYEE><NAME>Corner Grocer</NAME></PAYEE>
            <MEMO>card 1234</MEMO>
          </STMTTRN>
        </BANKTRANLIST>
        <LEDGERBAL>
          <BALAMT>3105.12</BALAMT>
          <DTASOF>20261015</DTASOF>
        </LEDGERBAL>
      </STMTRS>
    </STMTTRNRS>
  </BANKMSGSRSV1>
  <CREDITCARDMSGSRSV1>
    <CCSTMTTRNRS>
      <CCSTMTRS>
        <CURDEF>USD</CURDEF>
        <CCACCTFROM><ACCTID>4111</ACCTID></CCACCTFROM>
        <BANKTRANLIST>
          <STMTTRN>
            <TRNTYPE>DEBIT</TRNTYPE>
            <DTPOSTED>20261003</DTPOSTED>
            <TRNAMT>-15.99</TRNAMT>
            <FITID>C1</FITID>
            <NAME>NETFLIX.COM</NAME>
          </STMTTRN>
        </BANKTRANLIST>
      </CCSTMTRS>
    </CCSTMTTRNRS>
  </CREDITCARDMSGSRSV1>
</OFX>`

func TestParse(t *testing.T) {
	statements, err := Parse(strings.NewReader(bankStatement))
	require.NoError(t, err)
	require.Len(t, statements, 2)

	bank := statements[0]
	assert.Equal(t, "000123456", bank.AccountID)
	assert.Equal(t, "USD", bank.Currency)
	require.NotNil(t, bank.LedgerBalance)
	assert.Equal(t, 3105.12, *bank.LedgerBalance)
	require.Len(t, bank.Transactions, 2)

	assert.Equal(t, Transaction{FITID: "F1", Type: "DIRECTDEP", Date: "2026-10-10", Amount: 2150, Name: "ACME PAYROLL"}, bank.Transactions[0])
	assert.Equal(t, -42.5, bank.Transactions[1].Amount)
	assert.Equal(t, "Corner Grocer", bank.Transactions[1].Name)
	assert.Equal(t, "card 1234", bank.Transactions[1].Memo)

	card := statements[1]
	assert.Equal(t, "4111", card.AccountID)
	assert.Nil(t, card.LedgerBalance)
	assert.Equal(t, "NETFLIX.COM", card.Transactions[0].Name)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not xml", "OFXHEADER:100\nDATA:OFXSGML", "OFX"},
		{"no root", "<FOO/>", "root element"},
		{"no statements", "<OFX><SIGNONMSGSRSV1/></OFX>", "no statements"},
		{"missing fitid", `<OFX><STMTRS><BANKTRANLIST><STMTTRN><TRNAMT>1</TRNAMT><DTPOSTED>20261001</DTPOSTED></STMTTRN></BANKTRANLIST></STMTRS></OFX>`, "FITID"},
		{"bad amount", `<OFX><STMTRS><BANKTRANLIST><STMTTRN><FITID>x</FITID><TRNAMT>abc</TRNAMT><DTPOSTED>20261001</DTPOSTED></STMTTRN></BANKTRANLIST></STMTRS></OFX>`, "invalid amount"},
		{"bad date", `<OFX><STMTRS><BANKTRANLIST><STMTTRN><FITID>x</FITID><TRNAMT>1</TRNAMT><DTPOSTED>2026</DTPOSTED></STMTTRN></BANKTRANLIST></STMTRS></OFX>`, "invalid OFX date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("20261231235959.999[+9:JST]")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("20261332")
	assert.Error(t, err)
}
