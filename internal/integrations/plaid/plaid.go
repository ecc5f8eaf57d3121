package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Dan9191/money-dashboard/internal/config"
	"github.com/sirupsen/logrus"
)

var environments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

const (
	clientName  = "Financial Dashboard"
	maxPageSize = 500
)

// Client talks to the Plaid REST API
type Client struct {
	baseURL  string
	clientID string
	secret   string
	client   *http.Client
	log      *logrus.Logger

	keysMu sync.Mutex
	keys   map[string]*verificationKey
	now    func() time.Time
}

// NewClient initializes a new Plaid client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	baseURL := cfg.PlaidBaseURL
	if baseURL == "" {
		baseURL = environments[cfg.PlaidEnv]
	}
	if baseURL == "" {
		baseURL = environments["sandbox"]
	}
	return &Client{
		baseURL:  baseURL,
		clientID: cfg.PlaidClientID,
		secret:   cfg.PlaidSecret,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:  log,
		keys: make(map[string]*verificationKey),
		now:  time.Now,
	}
}

// post sends a JSON request to path and decodes the JSON response into out
func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PLAID-CLIENT-ID", c.clientID)
	req.Header.Set("PLAID-SECRET", c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}
	c.log.Debugf("Plaid %s responded %d", path, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.ErrorCode == "" {
			apiErr.ErrorMessage = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// CreateLinkToken returns a Link token for the given user
func (c *Client) CreateLinkToken(ctx context.Context, userID, webhookURL string) (string, error) {
	in := map[string]interface{}{
		"user":          map[string]string{"client_user_id": userID},
		"client_name":   clientName,
		"products":      []string{"transactions"},
		"country_codes": []string{"US"},
		"language":      "en",
	}
	if webhookURL != "" {
		in["webhook"] = webhookURL
	}
	var out struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post(ctx, "/link/token/create", in, &out); err != nil {
		return "", err
	}
	return out.LinkToken, nil
}

// ExchangePublicToken swaps a Link public token for an access token and item id
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	var out struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := c.post(ctx, "/item/public_token/exchange", map[string]string{"public_token": publicToken}, &out); err != nil {
		return "", "", err
	}
	c.log.Infof("Exchanged public token for item %s", out.ItemID)
	return out.AccessToken, out.ItemID, nil
}

// GetBalances returns real-time balances of every account on the item
func (c *Client) GetBalances(ctx context.Context, accessToken string) ([]Account, error) {
	var out struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.post(ctx, "/accounts/balance/get", map[string]string{"access_token": accessToken}, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// TransactionsOptions narrows GetTransactions
type TransactionsOptions struct {
	AccountIDs []string
	Count      int
	Offset     int
}

// GetTransactions returns one page of transactions dated within [start, end]
func (c *Client) GetTransactions(ctx context.Context, accessToken, start, end string, opts TransactionsOptions) (*TransactionsResult, error) {
	count := opts.Count
	if count <= 0 || count > maxPageSize {
		count = maxPageSize
	}
	options := map[string]interface{}{
		"count":  count,
		"offset": opts.Offset,
	}
	if len(opts.AccountIDs) > 0 {
		options["account_ids"] = opts.AccountIDs
	}
	in := map[string]interface{}{
		"access_token": accessToken,
		"start_date":   start,
		"end_date":     end,
		"options":      options,
	}
	out := &TransactionsResult{}
	if err := c.post(ctx, "/transactions/get", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SyncTransactions returns the changes since cursor. An empty cursor starts
// from the beginning of the item's history.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncResult, error) {
	in := map[string]interface{}{
		"access_token": accessToken,
		"count":        maxPageSize,
	}
	if cursor != "" {
		in["cursor"] = cursor
	}
	out := &SyncResult{}
	if err := c.post(ctx, "/transactions/sync", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
