package models

import "time"

// DateRange is an inclusive range of calendar days (YYYY-MM-DD)
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Anomaly flags a transaction the analysis considers unusual
type Anomaly struct {
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason"`
}

// PaycheckFinding is a deposit the analysis identified as pay
type PaycheckFinding struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	IsBonus       bool    `json:"isBonus"`
}

// BonusFinding is a deposit the analysis identified as a bonus
type BonusFinding struct {
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
}

// CategoryMapping assigns a category to a transaction
type CategoryMapping struct {
	TransactionID string   `json:"transactionId"`
	Category      Category `json:"category"`
	Confidence    float64  `json:"confidence"`
}

// AnalysisResult is the validated outcome of an LLM transaction analysis
type AnalysisResult struct {
	UserID            string             `json:"userId"`
	DateRange         DateRange          `json:"dateRange"`
	AutomatedPayments []AutomatedPayment `json:"automatedPayments"`
	Anomalies         []Anomaly          `json:"anomalies"`
	Paychecks         []PaycheckFinding  `json:"paychecks"`
	Bonuses           []BonusFinding     `json:"bonuses"`
	CategoryMappings  []CategoryMapping  `json:"categoryMappings"`
	AnalyzedAt        time.Time          `json:"analyzedAt"`
}

// AnalysisSummary counts the findings of an analysis
type AnalysisSummary struct {
	AutomatedPaymentCount   int `json:"automatedPaymentCount"`
	AnomalyCount            int `json:"anomalyCount"`
	PaycheckCount           int `json:"paycheckCount"`
	BonusCount              int `json:"bonusCount"`
	CategorizedTransactions int `json:"categorizedTransactions"`
}

// Summary returns finding counts for r
func (r *AnalysisResult) Summary() AnalysisSummary {
	return AnalysisSummary{
		AutomatedPaymentCount:   len(r.AutomatedPayments),
		AnomalyCount:            len(r.Anomalies),
		PaycheckCount:           len(r.Paychecks),
		BonusCount:              len(r.Bonuses),
		CategorizedTransactions: len(r.CategoryMappings),
	}
}
