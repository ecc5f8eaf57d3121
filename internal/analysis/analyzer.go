// Package analysis runs LLM-backed transaction analysis and the rule-based
// heuristics that complement it.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DetectedPaymentConfidence is assigned to every payment the model reports
const DetectedPaymentConfidence = 0.8

const defaultCategoryConfidence = 0.5

// ErrNoTransactions is returned when there is nothing to analyze
var ErrNoTransactions = errors.New("no transactions to analyze")

// Input is one analysis request
type Input struct {
	UserID         string
	Transactions   []models.Transaction
	DateRange      models.DateRange
	PaycheckAmount *float64
	BonusRange     *models.BonusRange
}

// Analyzer turns raw model output into a validated AnalysisResult
type Analyzer struct {
	gen Generator
	log *logrus.Logger
	now func() time.Time
}

// NewAnalyzer creates an analyzer backed by gen
func NewAnalyzer(gen Generator, log *logrus.Logger) *Analyzer {
	return &Analyzer{gen: gen, log: log, now: time.Now}
}

// Analyze asks the model about in.Transactions and validates its answer
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	if len(in.Transactions) == 0 {
		return nil, ErrNoTransactions
	}
	prompt, err := buildPrompt(in.Transactions, in.PaycheckAmount, in.BonusRange)
	if err != nil {
		return nil, err
	}

	raw, err := a.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze transactions: %w", err)
	}

	var out rawResult
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &out); err != nil {
		preview := raw
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("failed to parse model response: %w: %s", err, preview)
	}

	result := a.process(out, in)
	a.log.WithFields(logrus.Fields{
		"user_id":            in.UserID,
		"transactions":       len(in.Transactions),
		"automated_payments": len(result.AutomatedPayments),
		"anomalies":          len(result.Anomalies),
	}).Info("Transaction analysis completed")
	return result, nil
}

type rawPayment struct {
	Vendor         string   `json:"vendor"`
	Amount         *float64 `json:"amount"`
	Frequency      string   `json:"frequency"`
	LastOccurrence string   `json:"last_occurrence"`
	Category       string   `json:"category"`
}

type rawIndexed struct {
	TransactionIndex *int     `json:"transaction_index"`
	Reason           string   `json:"reason"`
	Amount           float64  `json:"amount"`
	Date             string   `json:"date"`
	IsBonus          bool     `json:"is_bonus"`
	Category         string   `json:"category"`
	Confidence       *float64 `json:"confidence"`
}

type rawResult struct {
	AutomatedPayments []rawPayment `json:"automated_payments"`
	Anomalies         []rawIndexed `json:"anomalies"`
	Paychecks         []rawIndexed `json:"paychecks"`
	Bonuses           []rawIndexed `json:"bonuses"`
	Categories        []rawIndexed `json:"categories"`
}

func (a *Analyzer) process(out rawResult, in Input) *models.AnalysisResult {
	now := a.now()
	result := &models.AnalysisResult{
		UserID:            in.UserID,
		DateRange:         in.DateRange,
		AutomatedPayments: []models.AutomatedPayment{},
		Anomalies:         []models.Anomaly{},
		Paychecks:         []models.PaycheckFinding{},
		Bonuses:           []models.BonusFinding{},
		CategoryMappings:  []models.CategoryMapping{},
		AnalyzedAt:        now,
	}

	for _, p := range out.AutomatedPayments {
		if !validPayment(p) {
			continue
		}
		last, err := parseModelDate(p.LastOccurrence)
		if err != nil {
			last = now
		}
		result.AutomatedPayments = append(result.AutomatedPayments, models.AutomatedPayment{
			ID:             "ap_" + uuid.NewString(),
			UserID:         in.UserID,
			Vendor:         strings.TrimSpace(p.Vendor),
			Amount:         math.Abs(*p.Amount),
			Frequency:      ValidFrequency(p.Frequency),
			Category:       ValidCategory(p.Category),
			LastOccurrence: last,
			Confidence:     DetectedPaymentConfidence,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	lookup := func(r rawIndexed) (*models.Transaction, bool) {
		if r.TransactionIndex == nil || *r.TransactionIndex < 0 || *r.TransactionIndex >= len(in.Transactions) {
			return nil, false
		}
		return &in.Transactions[*r.TransactionIndex], true
	}

	for _, r := range out.Anomalies {
		if t, ok := lookup(r); ok {
			reason := r.Reason
			if reason == "" {
				reason = "Unusual transaction"
			}
			result.Anomalies = append(result.Anomalies, models.Anomaly{TransactionID: t.ID, Reason: reason})
		}
	}
	for _, r := range out.Paychecks {
		if t, ok := lookup(r); ok {
			result.Paychecks = append(result.Paychecks, models.PaycheckFinding{
				TransactionID: t.ID,
				Amount:        r.Amount,
				Date:          findingDate(r.Date, t.Date),
				IsBonus:       r.IsBonus,
			})
		}
	}
	for _, r := range out.Bonuses {
		if t, ok := lookup(r); ok {
			result.Bonuses = append(result.Bonuses, models.BonusFinding{
				TransactionID: t.ID,
				Amount:        r.Amount,
				Date:          findingDate(r.Date, t.Date),
			})
		}
	}
	for _, r := range out.Categories {
		if t, ok := lookup(r); ok {
			confidence := defaultCategoryConfidence
			if r.Confidence != nil && *r.Confidence != 0 {
				confidence = math.Max(0, math.Min(1, *r.Confidence))
			}
			result.CategoryMappings = append(result.CategoryMappings, models.CategoryMapping{
				TransactionID: t.ID,
				Category:      ValidCategory(r.Category),
				Confidence:    confidence,
			})
		}
	}
	return result
}

func validPayment(p rawPayment) bool {
	return strings.TrimSpace(p.Vendor) != "" && p.Amount != nil && *p.Amount > 0 && p.Frequency != "" && p.Category != ""
}

// ValidFrequency returns f when it is known, otherwise monthly
func ValidFrequency(f string) models.Frequency {
	if freq := models.Frequency(f); freq.Valid() {
		return freq
	}
	return models.FrequencyMonthly
}

// ValidCategory returns c when it is known, otherwise other
func ValidCategory(c string) models.Category {
	if cat := models.Category(c); cat.Valid() {
		return cat
	}
	return models.CategoryOther
}

// findingDate normalizes a model date to YYYY-MM-DD, falling back to the
// transaction's own date
func findingDate(raw, fallback string) string {
	if t, err := parseModelDate(raw); err == nil {
		return t.Format(models.DateLayout)
	}
	return fallback
}

func parseModelDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(models.DateLayout, raw)
}

// cleanModelJSON strips markdown fences and any text around the top-level object
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
