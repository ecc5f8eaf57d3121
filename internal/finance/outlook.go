// Package finance holds the pure cash-flow projection and spending
// aggregation used by the dashboard.
package finance

import (
	"fmt"
	"math"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
)

const (
	// BonusWindowDays is how close a bonus must be to become the projection horizon
	BonusWindowDays = 30
	// DefaultHorizonDays is used when no bonus falls inside the window
	DefaultHorizonDays = 90
	// PaycheckCycleDays is the pay period length
	PaycheckCycleDays = 14

	lowRiskSurplus      = 1000.0
	riskBaseline        = 10000.0
	mediumDeficitRatio  = 0.1
	largeMonthlyPayment = 500.0
	annualHorizonDays   = 365

	day = 24 * time.Hour
)

// OutlookInput is everything CalculateOutlook needs. Pointer fields are optional.
type OutlookInput struct {
	Now               time.Time
	CurrentBalance    float64
	NextBonusDate     *time.Time
	AutomatedPayments []models.AutomatedPayment
	PaycheckAmount    *float64
	LastPaycheckDate  *time.Time
}

// CalculateOutlook projects the balance forward to the next bonus (when it is
// within BonusWindowDays) or over DefaultHorizonDays otherwise.
func CalculateOutlook(in OutlookInput) models.FinancialOutlook {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	hasBonus := false
	daysUntilBonus := 0
	if in.NextBonusDate != nil {
		until := in.NextBonusDate.Sub(now)
		if until >= 0 && until <= BonusWindowDays*day {
			hasBonus = true
			daysUntilBonus = ceilDays(until)
		}
	}

	horizon := DefaultHorizonDays
	if hasBonus {
		horizon = daysUntilBonus
	}

	paychecks := PaycheckCount(now, horizon, in.LastPaycheckDate)

	deposits := 0.0
	if in.PaycheckAmount != nil {
		deposits = float64(paychecks) * *in.PaycheckAmount
	}

	expenses := ExpectedExpenses(in.AutomatedPayments, horizon)
	available := in.CurrentBalance + deposits
	required := expenses
	overUnder := available - required

	payments := make([]models.AutomatedPayment, len(in.AutomatedPayments))
	copy(payments, in.AutomatedPayments)

	out := models.FinancialOutlook{
		CurrentBalance:           in.CurrentBalance,
		DaysUntilBonus:           daysUntilBonus,
		PaychecksUntilBonus:      paychecks,
		ExpectedPaycheckDeposits: deposits,
		ExpectedExpenses:         expenses,
		AvailableFunds:           available,
		RequiredFunds:            required,
		OverUnder:                overUnder,
		AutomatedPayments:        payments,
		RiskLevel:                RiskLevelFor(overUnder),
		Recommendations:          recommendations(overUnder, horizon, in.AutomatedPayments, hasBonus),
		CalculatedAt:             now,
	}
	if hasBonus {
		out.NextBonusDate = in.NextBonusDate.Format(models.DateLayout)
	}
	return out
}

// PaycheckCount returns how many paydays fall within horizonDays. With a known
// last paycheck the cycle phase is taken into account.
func PaycheckCount(now time.Time, horizonDays int, lastPaycheck *time.Time) int {
	if lastPaycheck == nil {
		return ceilDiv(horizonDays, PaycheckCycleDays)
	}
	daysSince := int(math.Floor(now.Sub(*lastPaycheck).Hours() / 24))
	phase := ((daysSince % PaycheckCycleDays) + PaycheckCycleDays) % PaycheckCycleDays
	nextIn := PaycheckCycleDays - phase
	count := (horizonDays + nextIn) / PaycheckCycleDays
	if count < 0 {
		return 0
	}
	return count
}

// Occurrences returns how many times a payment of the given frequency is
// charged within horizonDays. Unknown frequencies are treated as monthly.
//
// Annual payments count once only while the horizon is at most a year.
func Occurrences(freq models.Frequency, horizonDays int) int {
	switch freq {
	case models.FrequencyBiWeekly:
		return ceilDiv(atLeastOne(ceilDiv(horizonDays, 14)), 2)
	case models.FrequencyWeekly:
		return atLeastOne(ceilDiv(horizonDays, 7))
	case models.FrequencyQuarterly:
		return atLeastOne(ceilDiv(horizonDays, 91))
	case models.FrequencyAnnual:
		if horizonDays <= annualHorizonDays {
			return 1
		}
		return 0
	default:
		return atLeastOne(ceilDiv(horizonDays, 30))
	}
}

// ExpectedExpenses sums every automated payment over the horizon
func ExpectedExpenses(payments []models.AutomatedPayment, horizonDays int) float64 {
	total := 0.0
	for _, p := range payments {
		total += p.Amount * float64(Occurrences(p.Frequency, horizonDays))
	}
	return total
}

// RiskLevelFor maps a projected surplus/deficit to a risk tier
func RiskLevelFor(overUnder float64) models.RiskLevel {
	deficitRatio := 0.0
	if overUnder < 0 {
		deficitRatio = math.Abs(overUnder) / (overUnder + riskBaseline)
	}

	switch {
	case overUnder >= lowRiskSurplus:
		return models.RiskLow
	case overUnder >= 0:
		return models.RiskMedium
	case deficitRatio < mediumDeficitRatio:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

func recommendations(overUnder float64, horizonDays int, payments []models.AutomatedPayment, hasBonus bool) []string {
	recs := []string{}

	switch {
	case overUnder < 0:
		timeFrame := fmt.Sprintf("over the next %d days", horizonDays)
		if hasBonus {
			timeFrame = "until your next bonus"
		}
		recs = append(recs, fmt.Sprintf("You have a projected shortfall of $%.2f %s.", math.Abs(overUnder), timeFrame))
		if horizonDays > 30 {
			recs = append(recs, "Consider reducing discretionary spending to bridge the gap.")
		}
		if hasBonus && horizonDays < 14 {
			recs = append(recs, "Your bonus is coming soon - monitor your balance closely.")
		}
	case overUnder < lowRiskSurplus:
		timeFrame := fmt.Sprintf("over the next %d days", horizonDays)
		if hasBonus {
			timeFrame = "until the next bonus"
		}
		recs = append(recs, fmt.Sprintf("Your finances are tight %s. Consider building an emergency fund.", timeFrame))
	default:
		timeFrame := fmt.Sprintf("for the next %d days", horizonDays)
		if hasBonus {
			timeFrame = "until your next bonus"
		}
		recs = append(recs, fmt.Sprintf("You have a healthy buffer %s.", timeFrame))
	}

	var weekly, largeMonthly bool
	for _, p := range payments {
		if p.Frequency == models.FrequencyWeekly {
			weekly = true
		}
		if p.Frequency == models.FrequencyMonthly && p.Amount > largeMonthlyPayment {
			largeMonthly = true
		}
	}
	if weekly {
		recs = append(recs, "You have weekly automated payments - ensure sufficient funds are available.")
	}
	if largeMonthly {
		recs = append(recs, "You have large monthly payments coming up. Plan accordingly.")
	}

	return recs
}

func ceilDays(d time.Duration) int {
	n := int(math.Ceil(d.Hours() / 24))
	if n < 0 {
		return 0
	}
	return n
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
