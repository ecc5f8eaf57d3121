package service

import (
	"context"
	"testing"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutomatedPaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t)

	created, err := f.svc.CreateAutomatedPayment(ctx, userID, models.AutomatedPayment{
		Vendor:         " Spotify ",
		Amount:         -10.99,
		Frequency:      models.FrequencyMonthly,
		Category:       models.CategoryMedia,
		Confidence:     0.2,
		LastOccurrence: time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Spotify", created.Vendor)
	assert.Equal(t, 10.99, created.Amount)
	assert.Equal(t, UserConfirmedConfidence, created.Confidence)
	assert.Equal(t, testNow, created.CreatedAt)

	_, err = f.svc.CreateAutomatedPayment(ctx, userID, models.AutomatedPayment{Vendor: "Gym", Amount: 40, Frequency: "daily", Category: models.CategoryHealthcare})
	assert.EqualError(t, err, "Invalid payment: invalid frequency")

	upcoming, err := f.svc.UpcomingPayments(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "2026-11-03", upcoming[0].NextExpected)

	upcoming, err = f.svc.UpcomingPayments(ctx, userID, 7)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	updated, err := f.svc.UpdateAutomatedPayment(ctx, userID, created.ID, PaymentPatch{
		Amount:    ptr(-12.99),
		Frequency: ptr(models.FrequencyAnnual),
	})
	require.NoError(t, err)
	assert.Equal(t, 12.99, updated.Amount)
	assert.Equal(t, models.FrequencyAnnual, updated.Frequency)
	assert.Equal(t, "Spotify", updated.Vendor)

	_, err = f.svc.UpdateAutomatedPayment(ctx, userID, created.ID, PaymentPatch{Vendor: ptr("  ")})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.UpdateAutomatedPayment(ctx, userID, created.ID, PaymentPatch{Category: ptr(models.Category("housing"))})
	assert.EqualError(t, err, "Invalid category")
	_, err = f.svc.UpdateAutomatedPayment(ctx, userID, "ap_missing", PaymentPatch{Amount: ptr(1.0)})
	assert.EqualError(t, err, "Automated payment not found")

	list, err := f.svc.ListAutomatedPayments(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12.99, list[0].Amount)

	require.NoError(t, f.svc.DeleteAutomatedPayment(ctx, userID, created.ID))
	assert.ErrorIs(t, f.svc.DeleteAutomatedPayment(ctx, userID, created.ID), ErrNotFound)

	list, err = f.svc.ListAutomatedPayments(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
