package analysis

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	system   string
	prompt   string
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.response, f.err
}

var analyzedAt = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newTestAnalyzer(gen Generator) *Analyzer {
	log := logrus.New()
	log.SetOutput(io.Discard)
	a := NewAnalyzer(gen, log)
	a.now = func() time.Time { return analyzedAt }
	return a
}

func sampleTransactions() []models.Transaction {
	return []models.Transaction{
		{ID: "t0", Date: "2026-10-01", Amount: -1800, Vendor: "Parkside Apartments", Description: "RENT OCT"},
		{ID: "t1", Date: "2026-10-03", Amount: 2150, Vendor: "ACME PAYROLL", Description: "DIRECT DEP"},
		{ID: "t2", Date: "2026-10-05", Amount: -15.99, Vendor: "Netflix", Description: "NETFLIX.COM"},
	}
}

func TestAnalyze(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n" + `{
		"automated_payments": [
			{"vendor": "Parkside Apartments", "amount": 1800, "frequency": "monthly", "last_occurrence": "2026-10-01T00:00:00Z", "category": "rent"},
			{"vendor": "Netflix", "amount": -15.99, "frequency": "fortnightly", "last_occurrence": "soon", "category": "streaming"},
			{"vendor": "Gym", "amount": 40, "frequency": "yearly", "last_occurrence": "2026-09-20", "category": "fitness"},
			{"vendor": "", "amount": 12, "frequency": "monthly", "last_occurrence": "2026-10-01", "category": "media"}
		],
		"anomalies": [{"transaction_index": 0, "reason": ""}, {"transaction_index": 9, "reason": "ghost"}],
		"paychecks": [{"transaction_index": 1, "amount": 2150, "date": "", "is_bonus": false}],
		"bonuses": [{"transaction_index": -1, "amount": 9000, "date": "2026-10-02"}],
		"categories": [
			{"transaction_index": 2, "category": "media", "confidence": 1.7},
			{"transaction_index": 0, "category": "housing", "confidence": 0},
			{"category": "dining", "confidence": 0.4}
		]
	}` + "\n```"}

	paycheck := 2150.0
	result, err := newTestAnalyzer(gen).Analyze(context.Background(), Input{
		UserID:         "user_1",
		Transactions:   sampleTransactions(),
		DateRange:      models.DateRange{Start: "2026-07-17", End: "2026-10-15"},
		PaycheckAmount: &paycheck,
		BonusRange:     &models.BonusRange{Min: 5000, Max: 9000},
	})
	require.NoError(t, err)

	assert.Contains(t, gen.prompt, "~$2150.00 every 2 weeks")
	assert.Contains(t, gen.prompt, "$5000.00-$9000.00")
	assert.Contains(t, gen.prompt, `"vendor": "Netflix"`)
	assert.Equal(t, systemPrompt, gen.system)

	require.Len(t, result.AutomatedPayments, 2, "negative amount and blank vendor are dropped")
	rent := result.AutomatedPayments[0]
	assert.Equal(t, "user_1", rent.UserID)
	assert.Equal(t, models.CategoryRent, rent.Category)
	assert.Equal(t, DetectedPaymentConfidence, rent.Confidence)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), rent.LastOccurrence)
	assert.NotEmpty(t, rent.ID)

	gym := result.AutomatedPayments[1]
	assert.Equal(t, models.FrequencyMonthly, gym.Frequency)
	assert.Equal(t, models.CategoryOther, gym.Category)
	assert.Equal(t, "2026-09-20", gym.LastOccurrence.Format(models.DateLayout))

	assert.Equal(t, []models.Anomaly{{TransactionID: "t0", Reason: "Unusual transaction"}}, result.Anomalies)
	assert.Equal(t, []models.PaycheckFinding{{TransactionID: "t1", Amount: 2150, Date: "2026-10-03"}}, result.Paychecks)
	assert.Empty(t, result.Bonuses)

	require.Len(t, result.CategoryMappings, 2)
	assert.Equal(t, models.CategoryMapping{TransactionID: "t2", Category: models.CategoryMedia, Confidence: 1}, result.CategoryMappings[0])
	assert.Equal(t, models.CategoryMapping{TransactionID: "t0", Category: models.CategoryOther, Confidence: 0.5}, result.CategoryMappings[1])

	assert.Equal(t, analyzedAt, result.AnalyzedAt)
	assert.Equal(t, models.AnalysisSummary{AutomatedPaymentCount: 2, AnomalyCount: 1, PaycheckCount: 1, CategorizedTransactions: 2}, result.Summary())
}

func TestAnalyze_PromptWithoutContext(t *testing.T) {
	gen := &fakeGenerator{response: `{"automated_payments":[],"anomalies":[],"paychecks":[],"bonuses":[],"categories":[]}`}
	result, err := newTestAnalyzer(gen).Analyze(context.Background(), Input{UserID: "u", Transactions: sampleTransactions()})
	require.NoError(t, err)

	assert.Contains(t, gen.prompt, "variable amounts every 2 weeks")
	assert.NotNil(t, result.AutomatedPayments)
	assert.NotNil(t, result.CategoryMappings)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := newTestAnalyzer(&fakeGenerator{}).Analyze(context.Background(), Input{UserID: "u"})
	assert.ErrorIs(t, err, ErrNoTransactions)

	boom := errors.New("quota exceeded")
	_, err = newTestAnalyzer(&fakeGenerator{err: boom}).Analyze(context.Background(), Input{Transactions: sampleTransactions()})
	assert.ErrorIs(t, err, boom)

	_, err = newTestAnalyzer(&fakeGenerator{response: "I could not analyze that"}).Analyze(context.Background(), Input{Transactions: sampleTransactions()})
	assert.ErrorContains(t, err, "failed to parse model response")
}

func TestCleanModelJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanModelJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanModelJSON("Here you go: {\"a\":1} hope it helps"))
	assert.Equal(t, `{"a":1}`, cleanModelJSON(`  {"a":1}  `))
}

func TestResponseSchema(t *testing.T) {
	assert.ElementsMatch(t, []string{"automated_payments", "anomalies", "paychecks", "bonuses", "categories"}, responseSchema.Required)
	cat := responseSchema.Properties["categories"].Items
	assert.Len(t, cat.Properties["category"].Enum, len(models.Categories))
	assert.Contains(t, cat.Required, "transaction_index")
}
