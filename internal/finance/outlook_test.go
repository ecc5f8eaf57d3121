package finance

import (
	"testing"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrFloat(f float64) *float64    { return &f }

func TestCalculateOutlook_BonusWithinWindow(t *testing.T) {
	out := CalculateOutlook(OutlookInput{
		Now:            testNow,
		CurrentBalance: 5000,
		NextBonusDate:  ptrTime(testNow.AddDate(0, 0, 10)),
		PaycheckAmount: ptrFloat(2000),
	})

	assert.Equal(t, "2026-10-25", out.NextBonusDate)
	assert.Equal(t, 10, out.DaysUntilBonus)
	assert.Equal(t, 1, out.PaychecksUntilBonus)
	assert.Equal(t, 2000.0, out.ExpectedPaycheckDeposits)
	assert.Equal(t, 0.0, out.ExpectedExpenses)
	assert.Equal(t, 7000.0, out.OverUnder)
	assert.Equal(t, models.RiskLow, out.RiskLevel)
	assert.Equal(t, testNow, out.CalculatedAt)
	require.NotEmpty(t, out.Recommendations)
	assert.Equal(t, "You have a healthy buffer until your next bonus.", out.Recommendations[0])
}

func TestCalculateOutlook_NoBonusMonthlyPayment(t *testing.T) {
	out := CalculateOutlook(OutlookInput{
		Now:            testNow,
		CurrentBalance: 100,
		AutomatedPayments: []models.AutomatedPayment{
			{Vendor: "Landlord", Amount: 800, Frequency: models.FrequencyMonthly},
		},
	})

	assert.Empty(t, out.NextBonusDate)
	assert.Equal(t, 0, out.DaysUntilBonus)
	assert.Equal(t, 2400.0, out.ExpectedExpenses)
	assert.Equal(t, 0.0, out.ExpectedPaycheckDeposits)
	assert.Equal(t, -2300.0, out.OverUnder)
	assert.Equal(t, models.RiskHigh, out.RiskLevel)
	assert.Equal(t, []string{
		"You have a projected shortfall of $2300.00 over the next 90 days.",
		"Consider reducing discretionary spending to bridge the gap.",
		"You have large monthly payments coming up. Plan accordingly.",
	}, out.Recommendations)
}

func TestCalculateOutlook_DistantBonusFallsBackToDefaultHorizon(t *testing.T) {
	out := CalculateOutlook(OutlookInput{
		Now:            testNow,
		CurrentBalance: 1000,
		NextBonusDate:  ptrTime(testNow.AddDate(0, 0, 45)),
		PaycheckAmount: ptrFloat(1500),
	})

	assert.Empty(t, out.NextBonusDate)
	assert.Equal(t, 0, out.DaysUntilBonus)
	assert.Equal(t, 7, out.PaychecksUntilBonus) // ceil(90/14)
	assert.Equal(t, 10500.0, out.ExpectedPaycheckDeposits)
}

func TestCalculateOutlook_PastBonusIsIgnored(t *testing.T) {
	out := CalculateOutlook(OutlookInput{
		Now:           testNow,
		NextBonusDate: ptrTime(testNow.AddDate(0, 0, -2)),
	})
	assert.Empty(t, out.NextBonusDate)
	assert.Equal(t, 7, out.PaychecksUntilBonus)
}

func TestCalculateOutlook_OverUnderIdentity(t *testing.T) {
	for _, balance := range []float64{0, 1, 250.5, 999.99, 5000, 123456.78} {
		out := CalculateOutlook(OutlookInput{
			Now:            testNow,
			CurrentBalance: balance,
			PaycheckAmount: ptrFloat(1234.56),
		})
		assert.Equal(t, balance+out.ExpectedPaycheckDeposits, out.OverUnder)
		assert.Equal(t, out.AvailableFunds-out.RequiredFunds, out.OverUnder)
		assert.Equal(t, out.OverUnder >= 1000, out.RiskLevel == models.RiskLow)
	}
}

func TestCalculateOutlook_CopiesPayments(t *testing.T) {
	payments := []models.AutomatedPayment{{Vendor: "Gym", Amount: 20, Frequency: models.FrequencyWeekly}}
	out := CalculateOutlook(OutlookInput{Now: testNow, CurrentBalance: 5000, AutomatedPayments: payments})

	payments[0].Amount = 999
	assert.Equal(t, 20.0, out.AutomatedPayments[0].Amount)
	assert.Contains(t, out.Recommendations, "You have weekly automated payments - ensure sufficient funds are available.")
}

func TestPaycheckCount(t *testing.T) {
	tests := []struct {
		name    string
		horizon int
		last    *time.Time
		want    int
	}{
		{"no history, short horizon", 10, nil, 1},
		{"no history, default horizon", 90, nil, 7},
		{"no history, zero horizon", 0, nil, 0},
		{"paid three days ago", 90, ptrTime(testNow.AddDate(0, 0, -3)), 7},
		{"paid ten days ago", 10, ptrTime(testNow.AddDate(0, 0, -10)), 1},
		{"paid thirteen days ago", 14, ptrTime(testNow.AddDate(0, 0, -13)), 1},
		{"paid thirteen days ago, longer horizon", 28, ptrTime(testNow.AddDate(0, 0, -13)), 2},
		{"paid a month ago", 28, ptrTime(testNow.AddDate(0, 0, -30)), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PaycheckCount(testNow, tt.horizon, tt.last))
		})
	}
}

func TestOccurrences(t *testing.T) {
	tests := []struct {
		freq    models.Frequency
		horizon int
		want    int
	}{
		{models.FrequencyMonthly, 90, 3},
		{models.FrequencyMonthly, 0, 1},
		{models.FrequencyMonthly, 31, 2},
		{models.FrequencyBiWeekly, 90, 4},
		{models.FrequencyBiWeekly, 10, 1},
		{models.FrequencyWeekly, 90, 13},
		{models.FrequencyWeekly, 3, 1},
		{models.FrequencyQuarterly, 90, 1},
		{models.FrequencyQuarterly, 92, 2},
		{models.FrequencyAnnual, 90, 1},
		{models.FrequencyAnnual, 365, 1},
		{models.FrequencyAnnual, 400, 0},
		{models.Frequency("fortnightly"), 60, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Occurrences(tt.freq, tt.horizon), "%s over %d days", tt.freq, tt.horizon)
	}
}

func TestExpectedExpenses(t *testing.T) {
	payments := []models.AutomatedPayment{
		{Amount: 1200, Frequency: models.FrequencyMonthly},
		{Amount: 15, Frequency: models.FrequencyWeekly},
		{Amount: 300, Frequency: models.FrequencyAnnual},
	}
	// 1200*3 + 15*13 + 300
	assert.Equal(t, 4095.0, ExpectedExpenses(payments, 90))
	assert.Equal(t, 0.0, ExpectedExpenses(nil, 90))
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		overUnder float64
		want      models.RiskLevel
	}{
		{5000, models.RiskLow},
		{1000, models.RiskLow},
		{999.99, models.RiskMedium},
		{0, models.RiskMedium},
		{-500, models.RiskMedium},
		{-1000, models.RiskHigh},
		{-2300, models.RiskHigh},
		{-10000, models.RiskHigh},
		// The baseline formula turns negative past -10000.
		{-20000, models.RiskMedium},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.overUnder), "overUnder=%v", tt.overUnder)
	}
}

func TestRecommendations_TightAndSoonBonus(t *testing.T) {
	tight := CalculateOutlook(OutlookInput{Now: testNow, CurrentBalance: 500})
	assert.Equal(t, []string{"Your finances are tight over the next 90 days. Consider building an emergency fund."}, tight.Recommendations)

	short := CalculateOutlook(OutlookInput{
		Now:            testNow,
		CurrentBalance: 10,
		NextBonusDate:  ptrTime(testNow.AddDate(0, 0, 5)),
		AutomatedPayments: []models.AutomatedPayment{
			{Amount: 100, Frequency: models.FrequencyMonthly},
		},
	})
	assert.Equal(t, []string{
		"You have a projected shortfall of $90.00 until your next bonus.",
		"Your bonus is coming soon - monitor your balance closely.",
	}, short.Recommendations)
}
