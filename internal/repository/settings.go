package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/models"
)

// GetSettings retrieves a user's settings
func (r *Repository) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	s := &models.UserSettings{}
	if err := r.get(ctx, settingsKey(userID), s); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSettings upserts settings, keeping the original creation time, and
// maintains the Plaid item index.
func (r *Repository) SaveSettings(ctx context.Context, s *models.UserSettings) error {
	now := r.now()
	if existing, err := r.GetSettings(ctx, s.UserID); err == nil {
		s.CreatedAt = existing.CreatedAt
		if existing.PlaidItemID != "" && existing.PlaidItemID != s.PlaidItemID {
			if err := r.kv.Delete(ctx, plaidItemKey(existing.PlaidItemID)); err != nil {
				return fmt.Errorf("failed to drop plaid item index: %w", err)
			}
		}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.AnalysisSchedule == "" {
		s.AnalysisSchedule = models.ScheduleManual
	}
	s.UpdatedAt = now

	if err := r.set(ctx, settingsKey(s.UserID), s, 0); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if s.PlaidItemID != "" {
		if err := r.set(ctx, plaidItemKey(s.PlaidItemID), s.UserID, 0); err != nil {
			return fmt.Errorf("failed to index plaid item: %w", err)
		}
	}
	return nil
}

// FindUserIDByPlaidItem resolves a Plaid item id to its owner
func (r *Repository) FindUserIDByPlaidItem(ctx context.Context, itemID string) (string, error) {
	var userID string
	if err := r.get(ctx, plaidItemKey(itemID), &userID); err != nil {
		return "", err
	}
	return userID, nil
}

// ListSettings returns the settings of every user that has them
func (r *Repository) ListSettings(ctx context.Context) ([]models.UserSettings, error) {
	entries, err := r.kv.Scan(ctx, "user:")
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	var out []models.UserSettings
	for _, e := range entries {
		if !strings.HasSuffix(e.Key, ":settings") {
			continue
		}
		var s models.UserSettings
		if err := decode(e, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
