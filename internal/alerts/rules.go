// Package alerts evaluates the alert rules against a user's financial state.
package alerts

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/google/uuid"
)

const (
	// LargeTransactionThreshold is the |amount| above which a transaction is flagged
	LargeTransactionThreshold = 1000.0
	// RecentDays is the look-back window for transaction rules
	RecentDays = 7
	// UpcomingBonusDays is how close a bonus must be to raise an alert
	UpcomingBonusDays = 7
	// MissingPaymentDay is the day of month after which missing payments are reported
	MissingPaymentDay = 15
	// MissingPaymentTolerance is how far a charge may differ from the expected amount
	MissingPaymentTolerance = 10.0
)

// Input is everything the rules look at
type Input struct {
	UserID            string
	Now               time.Time
	Outlook           models.FinancialOutlook
	Transactions      []models.Transaction
	AutomatedPayments []models.AutomatedPayment
}

// Evaluate returns the alerts raised by in. Each alert carries a Key so the
// store can drop ones that were already raised.
func Evaluate(in Input) []models.Alert {
	var out []models.Alert
	add := func(a models.Alert) {
		a.ID = "alert_" + uuid.NewString()
		a.UserID = in.UserID
		a.CreatedAt = in.Now
		out = append(out, a)
	}

	o := in.Outlook
	if o.OverUnder < 0 {
		until := "over the next 90 days"
		key := "low_funds:" + in.Now.Format("2006-01")
		if o.NextBonusDate != "" {
			until = "until your next bonus on " + displayDate(o.NextBonusDate)
			key = "low_funds:" + o.NextBonusDate
		}
		add(models.Alert{
			Type:     models.AlertLowFunds,
			Key:      key,
			Title:    "Low Funds Warning",
			Message:  fmt.Sprintf("You have a projected shortfall of $%.2f %s.", math.Abs(o.OverUnder), until),
			Severity: models.SeverityWarning,
			Data: map[string]interface{}{
				"shortfall":      o.OverUnder,
				"daysUntilBonus": o.DaysUntilBonus,
			},
		})
	}

	if o.NextBonusDate != "" && o.DaysUntilBonus > 0 && o.DaysUntilBonus <= UpcomingBonusDays {
		add(models.Alert{
			Type:     models.AlertUpcomingBonus,
			Key:      "upcoming_bonus:" + o.NextBonusDate,
			Title:    "Bonus Incoming",
			Message:  fmt.Sprintf("Your bonus is expected in %d days on %s.", o.DaysUntilBonus, displayDate(o.NextBonusDate)),
			Severity: models.SeverityInfo,
			Data: map[string]interface{}{
				"bonusDate":      o.NextBonusDate,
				"daysUntilBonus": o.DaysUntilBonus,
			},
		})
	}

	since := in.Now.AddDate(0, 0, -RecentDays).Format(models.DateLayout)
	for _, t := range in.Transactions {
		if t.Date < since {
			continue
		}
		switch {
		case t.Type == models.TypeBonus && t.Amount > 0:
			add(models.Alert{
				Type:     models.AlertBonusDetected,
				Key:      "bonus_detected:" + t.ID,
				Title:    "Bonus Received",
				Message:  fmt.Sprintf("A bonus of $%.2f from %s landed on %s.", t.Amount, t.Vendor, displayDate(t.Date)),
				Severity: models.SeverityInfo,
				Data: map[string]interface{}{
					"transactionId": t.ID,
					"amount":        t.Amount,
					"date":          t.Date,
				},
			})
		case math.Abs(t.Amount) > LargeTransactionThreshold && t.Type != models.TypePaycheck && t.Type != models.TypeBonus:
			add(models.Alert{
				Type:     models.AlertUnexpectedTransaction,
				Key:      "unexpected_transaction:" + t.ID,
				Title:    "Large Transaction Detected",
				Message:  fmt.Sprintf("A transaction of $%.2f at %s was detected. Please verify this is correct.", math.Abs(t.Amount), t.Vendor),
				Severity: models.SeverityWarning,
				Data: map[string]interface{}{
					"transactionId": t.ID,
					"amount":        t.Amount,
					"vendor":        t.Vendor,
					"date":          t.Date,
				},
			})
		}
	}

	if in.Now.Day() > MissingPaymentDay {
		month := in.Now.Format("2006-01")
		for _, p := range in.AutomatedPayments {
			if p.Frequency != models.FrequencyMonthly || paidInMonth(p, in.Transactions, month) {
				continue
			}
			add(models.Alert{
				Type:     models.AlertMissingPayment,
				Key:      "missing_payment:" + p.ID + ":" + month,
				Title:    "Missing Expected Payment",
				Message:  fmt.Sprintf("Expected monthly payment of $%.2f to %s not found for %s.", p.Amount, p.Vendor, in.Now.Format("January 2006")),
				Severity: models.SeverityWarning,
				Data: map[string]interface{}{
					"paymentId":      p.ID,
					"vendor":         p.Vendor,
					"expectedAmount": p.Amount,
					"frequency":      p.Frequency,
				},
			})
		}
	}
	return out
}

// paidInMonth reports whether a charge matching p was seen in month (YYYY-MM)
func paidInMonth(p models.AutomatedPayment, txns []models.Transaction, month string) bool {
	vendor := strings.ToLower(p.Vendor)
	for _, t := range txns {
		if strings.HasPrefix(t.Date, month) &&
			strings.Contains(strings.ToLower(t.Vendor), vendor) &&
			math.Abs(math.Abs(t.Amount)-p.Amount) < MissingPaymentTolerance {
			return true
		}
	}
	return false
}

// Notifiable keeps the alerts worth an e-mail: warnings and errors
func Notifiable(alerts []models.Alert) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if a.Severity == models.SeverityWarning || a.Severity == models.SeverityError {
			out = append(out, a)
		}
	}
	return out
}

func displayDate(day string) string {
	t, err := time.Parse(models.DateLayout, day)
	if err != nil {
		return day
	}
	return t.Format("Jan 2, 2006")
}
