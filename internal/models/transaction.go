package models

import "time"

// DateLayout is the calendar-day format used for transaction dates
const DateLayout = "2006-01-02"

// Category is a closed set of spending categories
type Category string

const (
	CategoryRent           Category = "rent"
	CategoryUtilities      Category = "utilities"
	CategoryInvestments    Category = "investments"
	CategoryMedia          Category = "media"
	CategoryGroceries      Category = "groceries"
	CategoryDining         Category = "dining"
	CategoryTransportation Category = "transportation"
	CategoryEntertainment  Category = "entertainment"
	CategoryHealthcare     Category = "healthcare"
	CategoryShopping       Category = "shopping"
	CategorySubscriptions  Category = "subscriptions"
	CategoryInsurance      Category = "insurance"
	CategoryOther          Category = "other"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryRent,
	CategoryUtilities,
	CategoryInvestments,
	CategoryMedia,
	CategoryGroceries,
	CategoryDining,
	CategoryTransportation,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryShopping,
	CategorySubscriptions,
	CategoryInsurance,
	CategoryOther,
}

// Valid reports whether c is one of Categories
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// TransactionType is a closed set of transaction kinds
type TransactionType string

const (
	TypePaycheck         TransactionType = "paycheck"
	TypeBonus            TransactionType = "bonus"
	TypeAutomatedPayment TransactionType = "automated_payment"
	TypeManualCharge     TransactionType = "manual_charge"
	TypeTransfer         TransactionType = "transfer"
	TypeDeposit          TransactionType = "deposit"
	TypeWithdrawal       TransactionType = "withdrawal"
)

// TransactionTypes lists every valid transaction type
var TransactionTypes = []TransactionType{
	TypePaycheck,
	TypeBonus,
	TypeAutomatedPayment,
	TypeManualCharge,
	TypeTransfer,
	TypeDeposit,
	TypeWithdrawal,
}

// Valid reports whether t is one of TransactionTypes
func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Transaction represents a single bank transaction owned by a user.
// Amount is signed: positive for credits, negative for debits.
type Transaction struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	PlaidTransactionID string          `json:"plaidTransactionId,omitempty"`
	AccountID          string          `json:"accountId"`
	Amount             float64         `json:"amount"`
	Date               string          `json:"date"` // Format: YYYY-MM-DD
	Vendor             string          `json:"vendor"`
	Description        string          `json:"description"`
	Category           Category        `json:"category"`
	Type               TransactionType `json:"type"`
	Pending            bool            `json:"pending"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// IsDebit reports whether money left the account
func (t Transaction) IsDebit() bool {
	return t.Amount < 0
}
