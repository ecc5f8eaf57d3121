package finance

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
)

// Period selects the window SpendingByCategory aggregates over
type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// ParsePeriod returns the named period, defaulting to monthly
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodQuarterly:
		return PeriodQuarterly
	case PeriodYearly:
		return PeriodYearly
	default:
		return PeriodMonthly
	}
}

// Start returns the first day of the period containing now
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodQuarterly:
		quarterStart := (int(now.Month())-1)/3*3 + 1
		return time.Date(now.Year(), time.Month(quarterStart), 1, 0, 0, 0, 0, now.Location())
	case PeriodYearly:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

// Label renders the period containing now, e.g. 2024-11, 2024-Q4 or 2024
func (p Period) Label(now time.Time) string {
	switch p {
	case PeriodQuarterly:
		return fmt.Sprintf("%d-Q%d", now.Year(), (int(now.Month())-1)/3+1)
	case PeriodYearly:
		return fmt.Sprintf("%d", now.Year())
	default:
		return now.Format("2006-01")
	}
}

// SpendingByCategory groups debits dated within the current period by
// category. Credits never contribute. Rows are sorted by amount, largest first.
func SpendingByCategory(txns []models.Transaction, period Period, now time.Time) []models.CategorySpend {
	from := period.Start(now).Format(models.DateLayout)
	to := now.Format(models.DateLayout)
	label := period.Label(now)

	type bucket struct {
		amount float64
		count  int
	}
	buckets := make(map[models.Category]*bucket)

	for _, t := range txns {
		d := calendarDay(t.Date)
		if d < from || d > to {
			continue
		}
		if !t.IsDebit() {
			continue
		}
		category := t.Category
		if category == "" {
			category = models.CategoryOther
		}
		b, ok := buckets[category]
		if !ok {
			b = &bucket{}
			buckets[category] = b
		}
		b.amount += math.Abs(t.Amount)
		b.count++
	}

	result := make([]models.CategorySpend, 0, len(buckets))
	for category, b := range buckets {
		result = append(result, models.CategorySpend{
			Category:         category,
			Amount:           b.amount,
			TransactionCount: b.count,
			TimePeriod:       label,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Amount != result[j].Amount {
			return result[i].Amount > result[j].Amount
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// calendarDay trims a timestamp down to its YYYY-MM-DD prefix
func calendarDay(s string) string {
	if len(s) > len(models.DateLayout) {
		return s[:len(models.DateLayout)]
	}
	return s
}
