// Package ofx reads OFX 2.x (XML) bank and credit-card statements.
package ofx

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Transaction is one STMTTRN entry. Amount follows OFX: positive is a credit.
type Transaction struct {
	FITID  string
	Type   string
	Date   string // Format: YYYY-MM-DD
	Amount float64
	Name   string
	Memo   string
}

// Statement is the parsed content of one statement response
type Statement struct {
	AccountID     string
	Currency      string
	LedgerBalance *float64
	Transactions  []Transaction
}

// Parse reads every bank and credit-card statement in an OFX 2.x document
func Parse(r io.Reader) ([]Statement, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse OFX: %w", err)
	}
	root := doc.SelectElement("OFX")
	if root == nil {
		return nil, fmt.Errorf("OFX root element not found")
	}

	var statements []Statement
	for _, rs := range append(root.FindElements(".//STMTRS"), root.FindElements(".//CCSTMTRS")...) {
		st, err := parseStatement(rs)
		if err != nil {
			return nil, err
		}
		statements = append(statements, st)
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("no statements found in OFX")
	}
	return statements, nil
}

func parseStatement(rs *etree.Element) (Statement, error) {
	st := Statement{
		AccountID: text(rs, "./BANKACCTFROM/ACCTID"),
		Currency:  text(rs, "./CURDEF"),
	}
	if st.AccountID == "" {
		st.AccountID = text(rs, "./CCACCTFROM/ACCTID")
	}
	if raw := text(rs, "./LEDGERBAL/BALAMT"); raw != "" {
		bal, err := parseAmount(raw)
		if err != nil {
			return st, fmt.Errorf("invalid ledger balance: %w", err)
		}
		st.LedgerBalance = &bal
	}

	for _, el := range rs.FindElements("./BANKTRANLIST/STMTTRN") {
		txn, err := parseTransaction(el)
		if err != nil {
			return st, err
		}
		st.Transactions = append(st.Transactions, txn)
	}
	return st, nil
}

func parseTransaction(el *etree.Element) (Transaction, error) {
	txn := Transaction{
		FITID: text(el, "./FITID"),
		Type:  strings.ToUpper(text(el, "./TRNTYPE")),
		Name:  text(el, "./NAME"),
		Memo:  text(el, "./MEMO"),
	}
	if txn.FITID == "" {
		return txn, fmt.Errorf("transaction without FITID")
	}
	if txn.Name == "" {
		txn.Name = text(el, "./PAYEE/NAME")
	}

	amount, err := parseAmount(text(el, "./TRNAMT"))
	if err != nil {
		return txn, fmt.Errorf("transaction %s: invalid amount: %w", txn.FITID, err)
	}
	txn.Amount = amount

	date, err := ParseDate(text(el, "./DTPOSTED"))
	if err != nil {
		return txn, fmt.Errorf("transaction %s: %w", txn.FITID, err)
	}
	txn.Date = date.Format("2006-01-02")
	return txn, nil
}

// ParseDate reads an OFX datetime (YYYYMMDD[HHMMSS[.XXX]][[+-offset:TZ]]).
// Only the calendar day is significant for statements.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '['); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) < 8 {
		return time.Time{}, fmt.Errorf("invalid OFX date %q", raw)
	}
	t, err := time.Parse("20060102", raw[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid OFX date %q: %w", raw, err)
	}
	return t, nil
}

// parseAmount accepts both '.' and ',' as the decimal separator
func parseAmount(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	return strconv.ParseFloat(raw, 64)
}

func text(el *etree.Element, path string) string {
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}
