package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/integrations/plaid"
	"github.com/Dan9191/money-dashboard/internal/metrics"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	// InitialImportDays is how far back the first import after linking reaches
	InitialImportDays = 90
	bankTimeout       = 30 * time.Second
	analysisTimeout   = 2 * time.Minute
	maxSyncPages      = 20
)

// SyncResult is the outcome of one transactions sync
type SyncResult struct {
	Added      []models.Transaction `json:"added"`
	Modified   []models.Transaction `json:"modified"`
	Removed    []string             `json:"removed"`
	NextCursor string               `json:"nextCursor"`
	HasMore    bool                 `json:"hasMore"`
}

// ConnectStatus reports whether the user has linked a bank
func (s *Service) ConnectStatus(ctx context.Context, userID string) (bool, error) {
	st, err := s.settings(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.BankConnected(), nil
}

// CreateLinkToken starts a Plaid Link flow for the user
func (s *Service) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	if s.bank == nil {
		return "", newError(ErrUnavailable, "Bank integration is not configured")
	}
	token, err := s.bank.CreateLinkToken(ctx, userID, s.config.PlaidWebhookURL)
	if err != nil {
		return "", fmt.Errorf("failed to create link token: %w", err)
	}
	return token, nil
}

// ExchangePublicToken links the bank behind publicToken to the user. The
// access token is stored encrypted and the sync cursor is reset.
func (s *Service) ExchangePublicToken(ctx context.Context, userID, publicToken string) (string, error) {
	if strings.TrimSpace(publicToken) == "" {
		return "", newError(ErrInvalidInput, "Public token is required")
	}
	if s.bank == nil {
		return "", newError(ErrUnavailable, "Bank integration is not configured")
	}

	accessToken, itemID, err := s.bank.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return "", fmt.Errorf("failed to exchange public token: %w", err)
	}
	encrypted, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}

	st, err := s.settings(ctx, userID)
	if err != nil {
		return "", err
	}
	st.PlaidAccessToken = encrypted
	st.PlaidItemID = itemID
	st.PlaidCursor = ""
	if err := s.repo.SaveSettings(ctx, st); err != nil {
		return "", err
	}

	s.log.Infof("Bank connected for user %s (item %s)", userID, itemID)
	s.invalidate(ctx, userID)
	return itemID, nil
}

// accessToken decrypts the stored Plaid access token
func (s *Service) accessToken(st *models.UserSettings) (string, error) {
	return s.cipher.Decrypt(st.PlaidAccessToken)
}

// linkedBank returns the settings and decrypted access token of a linked user
func (s *Service) linkedBank(ctx context.Context, userID string) (*models.UserSettings, string, error) {
	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if !st.BankConnected() {
		return nil, "", newError(ErrBankNotConnected, "Bank account not connected")
	}
	if s.bank == nil {
		return nil, "", newError(ErrUnavailable, "Bank integration is not configured")
	}
	token, err := s.accessToken(st)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return st, token, nil
}

// PlaidBalances returns the live balances of the linked accounts
func (s *Service) PlaidBalances(ctx context.Context, userID string) ([]plaid.Account, error) {
	_, token, err := s.linkedBank(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.bank.GetBalances(ctx, token)
}

// PlaidTransactions fetches transactions straight from the bank without storing them
func (s *Service) PlaidTransactions(ctx context.Context, userID, start, end, accountID string) (*plaid.TransactionsResult, error) {
	if start == "" || end == "" {
		return nil, newError(ErrInvalidInput, "startDate and endDate are required")
	}
	_, token, err := s.linkedBank(ctx, userID)
	if err != nil {
		return nil, err
	}
	opts := plaid.TransactionsOptions{Count: 500}
	if accountID != "" {
		opts.AccountIDs = []string{accountID}
	}
	return s.bank.GetTransactions(ctx, token, start, end, opts)
}

// Sync pulls one page of changes since cursor (or the stored cursor when
// empty), applies them and stores the next cursor.
func (s *Service) Sync(ctx context.Context, userID, cursor string) (*SyncResult, error) {
	st, token, err := s.linkedBank(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cursor == "" {
		cursor = st.PlaidCursor
	}

	page, err := s.bank.SyncTransactions(ctx, token, cursor)
	s.metrics.BankSyncsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to sync transactions: %w", err)
	}

	added, err := s.ProcessNewTransactions(ctx, userID, page.Added)
	if err != nil {
		return nil, err
	}
	modified, err := s.ingest(ctx, st, page.Modified)
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0, len(page.Removed))
	for _, r := range page.Removed {
		if err := s.repo.DeleteTransaction(ctx, userID, r.TransactionID); err != nil {
			return nil, err
		}
		removed = append(removed, r.TransactionID)
	}

	if page.NextCursor != "" {
		// Reload so the async analysis' settings writes are not clobbered.
		fresh, err := s.settings(ctx, userID)
		if err != nil {
			return nil, err
		}
		fresh.PlaidCursor = page.NextCursor
		if err := s.repo.SaveSettings(ctx, fresh); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, userID)

	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"added":    len(added),
		"modified": len(modified),
		"removed":  len(removed),
	}).Info("Transactions synced")

	return &SyncResult{
		Added:      added,
		Modified:   modified,
		Removed:    removed,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}, nil
}

// syncAll drains every available sync page
func (s *Service) syncAll(ctx context.Context, userID string) error {
	for i := 0; i < maxSyncPages; i++ {
		res, err := s.Sync(ctx, userID, "")
		if err != nil {
			return err
		}
		if !res.HasMore {
			return nil
		}
	}
	s.log.Warnf("Sync for user %s stopped after %d pages", userID, maxSyncPages)
	return nil
}

// importRecent fetches the last InitialImportDays of transactions and processes them
func (s *Service) importRecent(ctx context.Context, userID string) error {
	_, token, err := s.linkedBank(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now()
	start := now.AddDate(0, 0, -InitialImportDays).Format(models.DateLayout)
	end := now.Format(models.DateLayout)

	var all []plaid.Transaction
	for {
		page, err := s.bank.GetTransactions(ctx, token, start, end, plaid.TransactionsOptions{Count: 500, Offset: len(all)})
		s.metrics.BankSyncsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			return fmt.Errorf("failed to fetch transactions: %w", err)
		}
		all = append(all, page.Transactions...)
		if len(page.Transactions) == 0 || len(all) >= page.TotalTransactions {
			break
		}
	}

	_, err = s.ProcessNewTransactions(ctx, userID, all)
	return err
}

// ProcessNewTransactions stores bank transactions for the user and, when
// the batch warrants it, starts an analysis in the background.
func (s *Service) ProcessNewTransactions(ctx context.Context, userID string, txns []plaid.Transaction) ([]models.Transaction, error) {
	if len(txns) == 0 {
		return []models.Transaction{}, nil
	}
	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	saved, err := s.ingest(ctx, st, txns)
	if err != nil {
		return nil, err
	}
	s.afterIngest(ctx, st, saved)
	return saved, nil
}

// afterIngest invalidates caches and decides whether to analyze the new data
func (s *Service) afterIngest(ctx context.Context, st *models.UserSettings, added []models.Transaction) {
	s.invalidate(ctx, st.UserID)
	if s.analyzer == nil {
		return
	}
	payments, err := s.repo.ListAutomatedPayments(ctx, st.UserID)
	if err != nil {
		s.log.Errorf("Failed to load automated payments for user %s: %v", st.UserID, err)
		return
	}
	if analysis.ShouldAnalyze(len(payments), added, s.bonusRange(st)) {
		s.analyzeAsync(st.UserID, "ingest")
	}
}

// ingest converts and saves bank transactions. Classification the user or
// an earlier analysis already made is kept.
func (s *Service) ingest(ctx context.Context, st *models.UserSettings, txns []plaid.Transaction) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(txns))
	for _, pt := range txns {
		t := convertTransaction(st.UserID, pt)
		existing, err := s.repo.GetTransaction(ctx, st.UserID, t.ID)
		switch {
		case err == nil:
			t.Category = existing.Category
			t.Type = existing.Type
			t.CreatedAt = existing.CreatedAt
			t.UpdatedAt = s.now()
		case errors.Is(err, repository.ErrNotFound):
			s.classify(&t, st)
		default:
			return nil, err
		}
		if err := s.repo.SaveTransaction(ctx, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	s.metrics.IngestedTotal.Add(float64(len(out)))
	return out, nil
}

// classify marks credits that look like a paycheck or a bonus
func (s *Service) classify(t *models.Transaction, st *models.UserSettings) {
	if t.Amount <= 0 {
		return
	}
	if bonus := s.bonusRange(st); bonus != nil {
		if d, err := s.parseDay(t.Date); err == nil && analysis.DetectBonusPaycheck(t.Amount, d, *bonus) {
			t.Type = models.TypeBonus
			return
		}
	}
	if paycheck := s.paycheckAmount(st); paycheck != nil && analysis.DetectRegularPaycheck(t.Amount, *paycheck) {
		t.Type = models.TypePaycheck
	}
}

// convertTransaction maps a Plaid transaction onto ours. Plaid amounts are
// positive for outflows; ours are positive for credits.
func convertTransaction(userID string, pt plaid.Transaction) models.Transaction {
	amount := -pt.Amount
	typ := models.TypeManualCharge
	if amount > 0 {
		typ = models.TypeDeposit
	}
	vendor := pt.MerchantName
	if vendor == "" {
		vendor = pt.Name
	}
	if vendor == "" {
		vendor = "Unknown"
	}
	return models.Transaction{
		ID:                 pt.TransactionID,
		UserID:             userID,
		PlaidTransactionID: pt.TransactionID,
		AccountID:          pt.AccountID,
		Amount:             amount,
		Date:               pt.Date,
		Vendor:             vendor,
		Description:        pt.Name,
		Category:           models.CategoryOther,
		Type:               typ,
		Pending:            pt.Pending,
	}
}

// HandleWebhook verifies and dispatches a Plaid webhook. Processing runs in
// the background so Plaid gets a prompt answer.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, verification string) error {
	if s.config.PlaidVerifyWebhooks && s.bank != nil {
		if err := s.bank.VerifyWebhook(ctx, body, verification); err != nil {
			s.log.Warnf("Rejected webhook: %v", err)
			return newError(ErrUnauthorized, "Invalid webhook signature")
		}
	}

	var hook plaid.Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return newError(ErrInvalidInput, "Invalid webhook payload")
	}
	s.metrics.WebhooksTotal.WithLabelValues(hook.WebhookType, hook.WebhookCode).Inc()

	userID, err := s.repo.FindUserIDByPlaidItem(ctx, hook.ItemID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warnf("Webhook for unknown item %s", hook.ItemID)
		return nil
	}
	if err != nil {
		return err
	}

	log := s.log.WithFields(logrus.Fields{
		"webhook_type": hook.WebhookType,
		"webhook_code": hook.WebhookCode,
		"item_id":      hook.ItemID,
		"user_id":      userID,
	})

	switch hook.WebhookType {
	case plaid.WebhookTypeTransactions:
		log.Info("Transactions webhook received")
		s.background("webhook:"+hook.WebhookCode, bankTimeout+analysisTimeout, func(ctx context.Context) error {
			return s.handleTransactionsWebhook(ctx, userID, hook)
		})
	case plaid.WebhookTypeItem:
		switch hook.WebhookCode {
		case plaid.CodeItemError, plaid.CodePendingExpiration, plaid.CodeUserPermissionRevoked:
			if hook.Error != nil {
				log = log.WithField("error", hook.Error.Error())
			}
			log.Warn("Item needs attention")
		default:
			log.Info("Item webhook received")
		}
	default:
		log.Info("Unhandled webhook type")
	}
	return nil
}

func (s *Service) handleTransactionsWebhook(ctx context.Context, userID string, hook plaid.Webhook) error {
	switch hook.WebhookCode {
	case plaid.CodeInitialUpdate, plaid.CodeHistoricalUpdate:
		return s.importRecent(ctx, userID)
	case plaid.CodeDefaultUpdate, plaid.CodeSyncUpdatesAvailable:
		return s.syncAll(ctx, userID)
	case plaid.CodeTransactionsRemoved:
		for _, id := range hook.RemovedTransactions {
			if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
				return err
			}
		}
		s.invalidate(ctx, userID)
		return nil
	default:
		s.log.Infof("Ignoring transactions webhook code %s", hook.WebhookCode)
		return nil
	}
}
