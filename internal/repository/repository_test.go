package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Dan9191/money-dashboard/internal/kvstore"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	kv.SetClock(func() time.Time { return fixedNow })
	r := NewRepository(kv)
	r.SetClock(func() time.Time { return fixedNow })
	return r
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	user := &models.User{Email: "  Ada@Example.com ", Name: "Ada"}
	require.NoError(t, r.CreateUser(ctx, user, models.Credentials{PasswordHash: "hash"}))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)

	found, err := r.FindUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	creds, err := r.GetCredentials(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", creds.PasswordHash)

	err = r.CreateUser(ctx, &models.User{Email: "ada@example.com"}, models.Credentials{})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = r.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSettings_PlaidIndexAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	s := &models.UserSettings{UserID: "u1", PlaidItemID: "item-a", PlaidAccessToken: "enc"}
	require.NoError(t, r.SaveSettings(ctx, s))
	assert.Equal(t, models.ScheduleManual, s.AnalysisSchedule)

	uid, err := r.FindUserIDByPlaidItem(ctx, "item-a")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	r.SetClock(func() time.Time { return fixedNow.Add(time.Hour) })
	s2 := &models.UserSettings{UserID: "u1", PlaidItemID: "item-b"}
	require.NoError(t, r.SaveSettings(ctx, s2))
	assert.Equal(t, fixedNow, s2.CreatedAt)
	assert.Equal(t, fixedNow.Add(time.Hour), s2.UpdatedAt)

	_, err = r.FindUserIDByPlaidItem(ctx, "item-a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.SaveSettings(ctx, &models.UserSettings{UserID: "u2"}))
	all, err := r.ListSettings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	s, err := r.CreateSession(ctx, "u1")
	require.NoError(t, err)

	got, err := r.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	require.NoError(t, r.ExtendSession(ctx, s.ID))

	require.NoError(t, r.DeleteSession(ctx, s.ID))
	_, err = r.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.ExtendSession(ctx, s.ID), ErrNotFound)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	txns := []models.Transaction{
		{ID: "a", UserID: "u1", Date: "2026-10-01", Amount: -10, Category: models.CategoryDining, Type: models.TypeManualCharge},
		{ID: "b", UserID: "u1", Date: "2026-10-05", Amount: 2000, Category: models.CategoryOther, Type: models.TypePaycheck},
		{ID: "c", UserID: "u1", Date: "2026-09-20", Amount: -99, Category: models.CategoryDining, Type: models.TypeManualCharge},
		{ID: "z", UserID: "u2", Date: "2026-10-02", Amount: -5},
	}
	require.NoError(t, r.SaveTransactions(ctx, txns))

	all, err := r.ListTransactions(ctx, "u1", TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "c", all[2].ID)
	assert.Equal(t, fixedNow, all[0].CreatedAt)

	dining, err := r.ListTransactions(ctx, "u1", TransactionFilter{Category: models.CategoryDining, StartDate: "2026-10-01"})
	require.NoError(t, err)
	require.Len(t, dining, 1)
	assert.Equal(t, "a", dining[0].ID)

	page, err := r.ListTransactions(ctx, "u1", TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)

	rest, err := r.ListTransactions(ctx, "u1", TransactionFilter{Limit: math.MaxInt, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	got, err := r.GetTransaction(ctx, "u1", "c")
	require.NoError(t, err)
	assert.Equal(t, -99.0, got.Amount)

	n, err := r.DeleteAllTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	other, err := r.ListTransactions(ctx, "u2", TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestAutomatedPayments_CRUD(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	empty, err := r.ListAutomatedPayments(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	p := &models.AutomatedPayment{UserID: "u1", Vendor: "Netflix", Amount: 15.99, Frequency: models.FrequencyMonthly}
	require.NoError(t, r.SaveAutomatedPayment(ctx, p))
	require.NotEmpty(t, p.ID)

	updated, err := r.UpdateAutomatedPayment(ctx, "u1", p.ID, func(ap *models.AutomatedPayment) { ap.Amount = 17.99 })
	require.NoError(t, err)
	assert.Equal(t, 17.99, updated.Amount)

	got, err := r.GetAutomatedPayment(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 17.99, got.Amount)

	_, err = r.UpdateAutomatedPayment(ctx, "u1", "missing", func(*models.AutomatedPayment) {})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.DeleteAutomatedPayment(ctx, "u1", p.ID))
	assert.ErrorIs(t, r.DeleteAutomatedPayment(ctx, "u1", p.ID), ErrNotFound)
}

func TestMergeAutomatedPayments(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	existing := &models.AutomatedPayment{
		UserID: "u1", Vendor: "Netflix", Amount: 15.99, Frequency: models.FrequencyMonthly,
		LastOccurrence: fixedNow.AddDate(0, 0, -3), Confidence: 0.9,
	}
	require.NoError(t, r.SaveAutomatedPayment(ctx, existing))

	merged, err := r.MergeAutomatedPayments(ctx, "u1", []models.AutomatedPayment{
		{Vendor: "NETFLIX", Amount: 16.00, Frequency: models.FrequencyMonthly, Category: models.CategoryMedia, LastOccurrence: fixedNow.AddDate(0, 0, -30), Confidence: 0.8},
		{Vendor: "Netflix", Amount: 22.99, Frequency: models.FrequencyMonthly},
		{Vendor: "Gym", Amount: 40, Frequency: models.FrequencyMonthly},
	})
	require.NoError(t, err)
	require.Len(t, merged, 3)

	assert.Equal(t, existing.ID, merged[0].ID)
	assert.Equal(t, models.CategoryMedia, merged[0].Category)
	assert.Equal(t, fixedNow.AddDate(0, 0, -3), merged[0].LastOccurrence)
	assert.Equal(t, "u1", merged[2].UserID)
	assert.NotEmpty(t, merged[2].ID)
}

func TestUpcoming(t *testing.T) {
	payments := []models.AutomatedPayment{
		{Vendor: "Rent", Frequency: models.FrequencyMonthly, LastOccurrence: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{Vendor: "Gym", Frequency: models.FrequencyWeekly, LastOccurrence: time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)},
		{Vendor: "Domain", Frequency: models.FrequencyAnnual, LastOccurrence: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Vendor: "Unknown", Frequency: models.FrequencyMonthly},
	}

	got := Upcoming(payments, fixedNow, 30)
	require.Len(t, got, 2)
	assert.Equal(t, "Gym", got[0].Vendor)
	assert.Equal(t, "2026-10-20", got[0].NextExpected)
	assert.Equal(t, "Rent", got[1].Vendor)
	assert.Equal(t, "2026-11-01", got[1].NextExpected)
}

func TestAlerts(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	added, err := r.AddAlerts(ctx, "u1", []models.Alert{
		{Type: models.AlertLowFunds, Key: "low_funds:2026-10-15", Title: "Low", Severity: models.SeverityWarning},
		{Type: models.AlertUpcomingBonus, Key: "bonus:2026-10-20", Title: "Bonus", Severity: models.SeverityInfo},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)

	again, err := r.AddAlerts(ctx, "u1", []models.Alert{{Type: models.AlertLowFunds, Key: "low_funds:2026-10-15"}})
	require.NoError(t, err)
	assert.Empty(t, again)

	count, err := r.UnreadAlertCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, r.MarkAlertRead(ctx, "u1", added[0].ID))
	require.NoError(t, r.DismissAlert(ctx, "u1", added[1].ID))
	assert.ErrorIs(t, r.DismissAlert(ctx, "u1", added[1].ID), ErrNotFound)
	assert.ErrorIs(t, r.MarkAlertRead(ctx, "u1", "nope"), ErrNotFound)

	active, err := r.ActiveAlerts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Read)

	count, err = r.UnreadAlertCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Dismissed alerts still block their key from coming back
	again, err = r.AddAlerts(ctx, "u1", []models.Alert{{Type: models.AlertUpcomingBonus, Key: "bonus:2026-10-20"}})
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestPruneAlerts(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	_, err := r.AddAlerts(ctx, "u1", []models.Alert{
		{Key: "old", CreatedAt: fixedNow.Add(-31 * 24 * time.Hour)},
		{Key: "edge", CreatedAt: fixedNow.Add(-AlertRetention)},
		{Key: "new"},
	})
	require.NoError(t, err)

	n, err := r.PruneAlerts(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := r.ListAlerts(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCachesAndInvalidation(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.NoError(t, r.SetCache(ctx, DashboardCacheKey("u1"), map[string]int{"v": 1}, DashboardTTL))
	require.NoError(t, r.SetCache(ctx, SearchCacheKey("u1", "q=x"), []int{1}, SearchTTL))
	require.NoError(t, r.SetCache(ctx, CalculationsCacheKey("u1", "outlook"), 1, CalculationsTTL))
	require.NoError(t, r.SetCache(ctx, DashboardCacheKey("u2"), 2, DashboardTTL))

	var v map[string]int
	hit, err := r.GetCache(ctx, DashboardCacheKey("u1"), &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, v["v"])

	require.NoError(t, r.InvalidateUserCache(ctx, "u1"))

	for _, key := range []string{DashboardCacheKey("u1"), SearchCacheKey("u1", "q=x"), CalculationsCacheKey("u1", "outlook")} {
		var dst interface{}
		hit, err := r.GetCache(ctx, key, &dst)
		require.NoError(t, err)
		assert.False(t, hit, key)
	}
	var other int
	hit, err = r.GetCache(ctx, DashboardCacheKey("u2"), &other)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestAnalysisCache(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	dr := models.DateRange{Start: "2026-07-17", End: "2026-10-15"}
	require.NoError(t, r.SaveAnalysis(ctx, &models.AnalysisResult{UserID: "u1", DateRange: dr, AnalyzedAt: fixedNow}))

	got, err := r.GetAnalysis(ctx, "u1", dr)
	require.NoError(t, err)
	assert.Equal(t, dr, got.DateRange)

	_, err = r.GetAnalysis(ctx, "u1", models.DateRange{Start: "2026-07-18", End: "2026-10-15"})
	assert.ErrorIs(t, err, ErrNotFound)
}
