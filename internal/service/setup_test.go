package service

import (
	"context"
	"testing"
	"time"

	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t)

	status, err := f.svc.SetupStatus(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, &SetupStatus{}, status)

	f.connectBank(t, userID)
	_, err = f.svc.InitializeSetup(ctx, userID, SetupRequest{HasBonus: true, BonusDate: "2026-12-20"})
	require.NoError(t, err)
	_, err = f.svc.CompleteSetup(ctx, userID, []models.AutomatedPayment{
		{Vendor: "Netflix", Amount: 15.99, Frequency: models.FrequencyMonthly, Category: models.CategoryMedia},
	})
	require.NoError(t, err)

	status, err = f.svc.SetupStatus(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.IsSetupComplete)
	assert.Equal(t, SetupProgress{Bank: true, Bonus: true, Payments: true}, status.SetupProgress)
}

func TestInitializeSetup_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t)

	cases := map[string]struct {
		req SetupRequest
		msg string
	}{
		"missing date": {SetupRequest{HasBonus: true}, "Bonus date is required when bonuses are enabled"},
		"bad date":     {SetupRequest{HasBonus: true, BonusDate: "12/20/2026"}, "Invalid date format, expected YYYY-MM-DD"},
		"past date":    {SetupRequest{HasBonus: true, BonusDate: "2026-10-01"}, "Bonus date must be in the future"},
		"today":        {SetupRequest{HasBonus: true, BonusDate: "2026-10-15"}, "Bonus date must be in the future"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.InitializeSetup(ctx, userID, tc.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.EqualError(t, err, tc.msg)
		})
	}
}

func TestInitializeSetup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cfg.PaycheckDepositAmount = ptr(2000.0)
	f.cfg.BonusAmountMin = ptr(5000.0)
	f.cfg.BonusAmountMax = ptr(9000.0)
	userID := f.newUser(t)

	empty, err := f.svc.InitializeSetup(ctx, userID, SetupRequest{})
	require.NoError(t, err)
	assert.Equal(t, "No transactions found for analysis", empty.Message)
	assert.NotNil(t, empty.AutomatedPayments)
	assert.Nil(t, empty.AnalysisSummary)

	st, err := f.repo.GetSettings(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, st.NextBonusDate)
	assert.Equal(t, 2000.0, *st.PaycheckDepositAmount)
	assert.Equal(t, &models.BonusRange{Min: 5000, Max: 9000}, st.BonusAmountRange)

	f.saveTransactions(t, userID,
		models.Transaction{ID: "n1", Date: "2026-09-01", Amount: -15.99, Vendor: "Netflix"},
		models.Transaction{ID: "n2", Date: "2026-10-01", Amount: -15.99, Vendor: "Netflix"},
		models.Transaction{ID: "p1", Date: "2026-10-03", Amount: 2000, Vendor: "ACME"},
	)
	f.analyzer.result = func(in analysis.Input) *models.AnalysisResult {
		return &models.AnalysisResult{
			UserID:    in.UserID,
			DateRange: in.DateRange,
			AutomatedPayments: []models.AutomatedPayment{
				{Vendor: "Netflix", Amount: 15.99, Frequency: models.FrequencyMonthly, Category: models.CategoryMedia, Confidence: 0.8},
			},
			CategoryMappings: []models.CategoryMapping{{TransactionID: "n1", Category: models.CategoryMedia}},
			Paychecks:        []models.PaycheckFinding{{TransactionID: "p1"}},
		}
	}

	res, err := f.svc.InitializeSetup(ctx, userID, SetupRequest{HasBonus: true, BonusDate: "2026-12-20"})
	require.NoError(t, err)
	assert.Equal(t, "Analysis complete", res.Message)
	require.Len(t, res.AutomatedPayments, 1)
	assert.Equal(t, &SetupSummary{TotalTransactions: 3, AutomatedPaymentsFound: 1, PaychecksFound: 1}, res.AnalysisSummary)

	// Detected payments wait for confirmation.
	payments, err := f.repo.ListAutomatedPayments(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	n1, err := f.repo.GetTransaction(ctx, userID, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMedia, n1.Category)
	p1, err := f.repo.GetTransaction(ctx, userID, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.TypePaycheck, p1.Type)

	st, err = f.repo.GetSettings(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "2026-12-20", st.NextBonusDate)
	assert.Equal(t, "2026-10-03", st.LastPaycheckDate)
}

func TestCompleteSetup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.newUser(t)

	_, err := f.svc.CreateAutomatedPayment(ctx, userID, models.AutomatedPayment{
		Vendor: "Old Gym", Amount: 40, Frequency: models.FrequencyMonthly, Category: models.CategoryHealthcare,
	})
	require.NoError(t, err)

	last := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	res, err := f.svc.CompleteSetup(ctx, userID, []models.AutomatedPayment{
		{Vendor: "Netflix", Amount: -15.99, Frequency: models.FrequencyMonthly, Category: models.CategoryMedia, Confidence: 0.5, LastOccurrence: last},
		{Vendor: "Landlord", Amount: 1800, Frequency: models.FrequencyMonthly, Category: models.CategoryRent},
	})
	require.NoError(t, err)
	assert.Equal(t, &SetupCompleteResult{Message: "Setup completed successfully", AutomatedPaymentsCount: 2}, res)

	payments, err := f.repo.ListAutomatedPayments(ctx, userID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "Netflix", payments[0].Vendor)
	assert.Equal(t, 15.99, payments[0].Amount)
	assert.Equal(t, UserConfirmedConfidence, payments[0].Confidence)
	assert.Equal(t, last, payments[0].LastOccurrence)
	assert.NotEmpty(t, payments[1].ID)
	assert.Equal(t, testNow, payments[1].LastOccurrence)

	_, err = f.svc.CompleteSetup(ctx, userID, []models.AutomatedPayment{
		{Vendor: "Netflix", Amount: 15.99, Frequency: models.FrequencyMonthly, Category: models.CategoryMedia},
		{Vendor: "Gym", Amount: 40, Frequency: "fortnightly", Category: models.CategoryHealthcare},
	})
	assert.EqualError(t, err, "Invalid payment data at index 1: invalid frequency")

	res, err = f.svc.CompleteSetup(ctx, userID, nil)
	require.NoError(t, err)
	assert.Zero(t, res.AutomatedPaymentsCount)
	payments, err = f.repo.ListAutomatedPayments(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
