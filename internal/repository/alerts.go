package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/google/uuid"
)

// AlertRetention is how long alerts are kept
const AlertRetention = 30 * 24 * time.Hour

// ListAlerts returns every stored alert, dismissed ones included
func (r *Repository) ListAlerts(ctx context.Context, userID string) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.get(ctx, alertsKey(userID), &alerts)
	if errors.Is(err, ErrNotFound) {
		return []models.Alert{}, nil
	}
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

// ActiveAlerts returns alerts the user has not dismissed, newest first
func (r *Repository) ActiveAlerts(ctx context.Context, userID string) ([]models.Alert, error) {
	alerts, err := r.ListAlerts(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := []models.Alert{}
	for i := len(alerts) - 1; i >= 0; i-- {
		if !alerts[i].Dismissed() {
			active = append(active, alerts[i])
		}
	}
	return active, nil
}

func (r *Repository) saveAlerts(ctx context.Context, userID string, alerts []models.Alert) error {
	if err := r.set(ctx, alertsKey(userID), alerts, 0); err != nil {
		return fmt.Errorf("failed to save alerts: %w", err)
	}
	return nil
}

// AddAlerts appends alerts whose Key is not already stored and returns the
// ones actually added.
func (r *Repository) AddAlerts(ctx context.Context, userID string, incoming []models.Alert) ([]models.Alert, error) {
	alerts, err := r.ListAlerts(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(alerts))
	for _, a := range alerts {
		if a.Key != "" {
			seen[a.Key] = true
		}
	}

	now := r.now()
	added := []models.Alert{}
	for _, a := range incoming {
		if a.Key != "" && seen[a.Key] {
			continue
		}
		if a.Key != "" {
			seen[a.Key] = true
		}
		if a.ID == "" {
			a.ID = "alert_" + uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UserID = userID
		alerts = append(alerts, a)
		added = append(added, a)
	}
	if len(added) == 0 {
		return added, nil
	}
	if err := r.saveAlerts(ctx, userID, alerts); err != nil {
		return nil, err
	}
	return added, nil
}

func (r *Repository) updateAlert(ctx context.Context, userID, alertID string, fn func(a *models.Alert)) error {
	alerts, err := r.ListAlerts(ctx, userID)
	if err != nil {
		return err
	}
	for i := range alerts {
		if alerts[i].ID == alertID && !alerts[i].Dismissed() {
			fn(&alerts[i])
			return r.saveAlerts(ctx, userID, alerts)
		}
	}
	return ErrNotFound
}

// MarkAlertRead flags an alert as read
func (r *Repository) MarkAlertRead(ctx context.Context, userID, alertID string) error {
	return r.updateAlert(ctx, userID, alertID, func(a *models.Alert) { a.Read = true })
}

// DismissAlert hides an alert. The record is kept so its key stays deduplicated.
func (r *Repository) DismissAlert(ctx context.Context, userID, alertID string) error {
	now := r.now()
	return r.updateAlert(ctx, userID, alertID, func(a *models.Alert) {
		a.DismissedAt = &now
		a.Read = true
	})
}

// UnreadAlertCount counts active unread alerts
func (r *Repository) UnreadAlertCount(ctx context.Context, userID string) (int, error) {
	alerts, err := r.ActiveAlerts(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range alerts {
		if !a.Read {
			n++
		}
	}
	return n, nil
}

// PruneAlerts drops alerts older than AlertRetention and returns how many went
func (r *Repository) PruneAlerts(ctx context.Context, userID string) (int, error) {
	alerts, err := r.ListAlerts(ctx, userID)
	if err != nil {
		return 0, err
	}
	cutoff := r.now().Add(-AlertRetention)
	kept := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if !a.CreatedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(alerts) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := r.saveAlerts(ctx, userID, kept); err != nil {
		return 0, err
	}
	return removed, nil
}
