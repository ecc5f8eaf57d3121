package models

import "time"

// RiskLevel classifies a projected surplus or deficit
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FinancialOutlook is a cash-flow projection up to the next bonus or a fixed horizon
type FinancialOutlook struct {
	CurrentBalance           float64            `json:"currentBalance"`
	NextBonusDate            string             `json:"nextBonusDate,omitempty"`
	DaysUntilBonus           int                `json:"daysUntilBonus"`
	PaychecksUntilBonus      int                `json:"paychecksUntilBonus"`
	ExpectedPaycheckDeposits float64            `json:"expectedPaycheckDeposits"`
	ExpectedExpenses         float64            `json:"expectedExpenses"`
	AvailableFunds           float64            `json:"availableFunds"`
	RequiredFunds            float64            `json:"requiredFunds"`
	OverUnder                float64            `json:"overUnder"` // Positive = surplus, negative = deficit
	AutomatedPayments        []AutomatedPayment `json:"automatedPayments"`
	RiskLevel                RiskLevel          `json:"riskLevel"`
	Recommendations          []string           `json:"recommendations"`
	CalculatedAt             time.Time          `json:"calculatedAt"`
}

// CategorySpend is debit spend for one category over a period
type CategorySpend struct {
	Category         Category `json:"category"`
	Amount           float64  `json:"amount"`
	TransactionCount int      `json:"transactionCount"`
	TimePeriod       string   `json:"timePeriod"` // e.g. 2024-11, 2024-Q4, 2024
}

// Dashboard aggregates everything the dashboard page renders
type Dashboard struct {
	CurrentBalance     float64            `json:"currentBalance"`
	FinancialOutlook   FinancialOutlook   `json:"financialOutlook"`
	RecentTransactions []Transaction      `json:"recentTransactions"`
	AutomatedPayments  []AutomatedPayment `json:"automatedPayments"`
	UpcomingPayments   []UpcomingPayment  `json:"upcomingPayments"`
	Alerts             []Alert            `json:"alerts"`
	SpendingByCategory []CategorySpend    `json:"spendingByCategory"`
	LastUpdated        time.Time          `json:"lastUpdated"`
}

// UpcomingPayment pairs an automated payment with its next expected date
type UpcomingPayment struct {
	AutomatedPayment
	NextExpected string `json:"nextExpected"` // Format: YYYY-MM-DD
}
