package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Dan9191/money-dashboard/internal/kvstore"
	"github.com/Dan9191/money-dashboard/internal/models"
)

// TransactionFilter narrows ListTransactions. Zero values are ignored.
type TransactionFilter struct {
	StartDate string
	EndDate   string
	Category  models.Category
	Type      models.TransactionType
	Limit     int
	Offset    int
}

func (f TransactionFilter) match(t *models.Transaction) bool {
	if f.StartDate != "" && t.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && t.Date > f.EndDate {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	return true
}

// SaveTransaction upserts a transaction
func (r *Repository) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if err := r.set(ctx, transactionKey(t.UserID, t.ID), t, 0); err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
	}
	return nil
}

// SaveTransactions upserts every transaction in txns
func (r *Repository) SaveTransactions(ctx context.Context, txns []models.Transaction) error {
	for i := range txns {
		if err := r.SaveTransaction(ctx, &txns[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetTransaction retrieves one transaction
func (r *Repository) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	t := &models.Transaction{}
	if err := r.get(ctx, transactionKey(userID, id), t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTransaction removes one transaction
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) error {
	return r.kv.Delete(ctx, transactionKey(userID, id))
}

// ListTransactions returns a user's transactions, newest first
func (r *Repository) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]models.Transaction, error) {
	entries, err := r.kv.Scan(ctx, transactionPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txns := make([]models.Transaction, 0, len(entries))
	for _, e := range entries {
		var t models.Transaction
		if err := decode(e, &t); err != nil {
			return nil, err
		}
		if f.match(&t) {
			txns = append(txns, t)
		}
	}

	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date > txns[j].Date })

	if f.Limit > 0 {
		start := min(max(f.Offset, 0), len(txns))
		end := start + min(f.Limit, len(txns)-start)
		txns = txns[start:end]
	}
	return txns, nil
}

// DeleteAllTransactions removes every transaction of a user
func (r *Repository) DeleteAllTransactions(ctx context.Context, userID string) (int64, error) {
	n, err := r.kv.DeletePrefix(ctx, transactionPrefix(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return n, nil
}

func decode(e kvstore.Entry, dst interface{}) error {
	if err := json.Unmarshal(e.Value, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", e.Key, err)
	}
	return nil
}
