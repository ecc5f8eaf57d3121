// Package plaid is a minimal client for the Plaid banking API.
package plaid

import "fmt"

// Balances of one account
type Balances struct {
	Available       *float64 `json:"available"`
	Current         *float64 `json:"current"`
	IsoCurrencyCode string   `json:"iso_currency_code"`
}

// Account is a bank account on a Plaid item
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name"`
	Mask         string   `json:"mask"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
	Balances     Balances `json:"balances"`
}

// Transaction as Plaid reports it. Amount is positive when money leaves the account.
type Transaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"`
	Name          string   `json:"name"`
	MerchantName  string   `json:"merchant_name"`
	Pending       bool     `json:"pending"`
	Category      []string `json:"category,omitempty"`
}

// RemovedTransaction identifies a transaction Plaid deleted
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// TransactionsResult is the /transactions/get response
type TransactionsResult struct {
	Accounts          []Account     `json:"accounts"`
	Transactions      []Transaction `json:"transactions"`
	TotalTransactions int           `json:"total_transactions"`
}

// SyncResult is the /transactions/sync response
type SyncResult struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
}

// Webhook types and codes handled by the service
const (
	WebhookTypeTransactions = "TRANSACTIONS"
	WebhookTypeItem         = "ITEM"

	CodeInitialUpdate             = "INITIAL_UPDATE"
	CodeHistoricalUpdate          = "HISTORICAL_UPDATE"
	CodeDefaultUpdate             = "DEFAULT_UPDATE"
	CodeTransactionsRemoved       = "TRANSACTIONS_REMOVED"
	CodeSyncUpdatesAvailable      = "SYNC_UPDATES_AVAILABLE"
	CodeItemError                 = "ERROR"
	CodePendingExpiration         = "PENDING_EXPIRATION"
	CodeUserPermissionRevoked     = "USER_PERMISSION_REVOKED"
	CodeWebhookUpdateAcknowledged = "WEBHOOK_UPDATE_ACKNOWLEDGED"
)

// Webhook is the body Plaid posts to the webhook endpoint
type Webhook struct {
	WebhookType         string   `json:"webhook_type"`
	WebhookCode         string   `json:"webhook_code"`
	ItemID              string   `json:"item_id"`
	NewTransactions     int      `json:"new_transactions"`
	RemovedTransactions []string `json:"removed_transactions,omitempty"`
	Error               *Error   `json:"error,omitempty"`
}

// Error is a Plaid API error response
type Error struct {
	StatusCode     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

func (e *Error) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("plaid: %s", e.ErrorMessage)
	}
	return fmt.Sprintf("plaid: %s %s: %s", e.ErrorType, e.ErrorCode, e.ErrorMessage)
}
