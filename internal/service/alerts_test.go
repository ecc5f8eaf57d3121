package service

import (
	"context"
	"testing"
	"time"

	"github.com/Dan9191/money-dashboard/internal/integrations/plaid"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedAlerts leaves a user short of rent with a large charge and a bonus in
// the last week
func seedAlerts(t *testing.T, f *fixture) string {
	t.Helper()
	ctx := context.Background()
	userID := f.newUser(t)
	f.connectBank(t, userID)
	f.bank.accounts = []plaid.Account{{AccountID: "chk", Type: "depository", Balances: plaid.Balances{Available: ptr(100.0)}}}

	_, err := f.svc.CreateAutomatedPayment(ctx, userID, models.AutomatedPayment{
		Vendor: "Landlord", Amount: 1800, Frequency: models.FrequencyMonthly, Category: models.CategoryRent,
	})
	require.NoError(t, err)
	f.saveTransactions(t, userID,
		models.Transaction{ID: "big", Date: "2026-10-12", Amount: -1500, Vendor: "Best Buy"},
		models.Transaction{ID: "bonus", Date: "2026-10-10", Amount: 6000, Vendor: "ACME", Type: models.TypeBonus},
		models.Transaction{ID: "old", Date: "2026-09-01", Amount: -2500, Vendor: "Airline"},
	)
	return userID
}

func alertTypes(alerts []models.Alert) []models.AlertType {
	out := make([]models.AlertType, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Type)
	}
	return out
}

func TestEvaluateAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.enabled = true
	userID := seedAlerts(t, f)

	added, err := f.svc.EvaluateAlerts(ctx, userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.AlertType{models.AlertLowFunds, models.AlertUnexpectedTransaction, models.AlertBonusDetected}, alertTypes(added))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, f.notifier.to)
	assert.ElementsMatch(t, []models.AlertType{models.AlertLowFunds, models.AlertUnexpectedTransaction}, alertTypes(f.notifier.sent[0]))

	again, err := f.svc.EvaluateAlerts(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, f.notifier.sent, 1)

	count, err := f.svc.UnreadAlertCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEvaluateAlerts_NotifierDisabled(t *testing.T) {
	f := newFixture(t)
	userID := seedAlerts(t, f)

	added, err := f.svc.EvaluateAlerts(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, added, 3)
	assert.Empty(t, f.notifier.sent)
}

func TestAlertAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := seedAlerts(t, f)
	added, err := f.svc.EvaluateAlerts(ctx, userID)
	require.NoError(t, err)
	require.Len(t, added, 3)

	msg, err := f.svc.AlertAction(ctx, userID, AlertActionRead, added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Alert marked as read", msg)
	count, err := f.svc.UnreadAlertCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	msg, err = f.svc.AlertAction(ctx, userID, AlertActionDismiss, added[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Alert dismissed", msg)
	active, err := f.svc.ListAlerts(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	count, err = f.svc.UnreadAlertCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = f.svc.AlertAction(ctx, userID, "snooze", added[2].ID)
	assert.EqualError(t, err, "Invalid action")
	_, err = f.svc.AlertAction(ctx, userID, AlertActionRead, "")
	assert.EqualError(t, err, "Alert ID is required")
	_, err = f.svc.AlertAction(ctx, userID, AlertActionRead, "alert_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Alert not found")
}

func TestRunAlertJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := seedAlerts(t, f)

	require.NoError(t, f.svc.RunAlertJobs(ctx))
	stored, err := f.repo.ListAlerts(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// A new month raises a fresh low funds warning.
	f.advance(20 * 24 * time.Hour)
	require.NoError(t, f.svc.RunAlertJobs(ctx))
	stored, err = f.repo.ListAlerts(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	// October's alerts age out.
	f.advance(27 * 24 * time.Hour)
	require.NoError(t, f.svc.RunAlertJobs(ctx))
	stored, err = f.repo.ListAlerts(ctx, userID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "low_funds:2026-11", stored[0].Key)
	assert.Equal(t, "low_funds:2026-12", stored[1].Key)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.SetCache(ctx, "probe", map[string]int{"n": 1}, time.Minute))

	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.advance(2 * time.Minute)
	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var out map[string]int
	hit, err := f.repo.GetCache(ctx, "probe", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}
