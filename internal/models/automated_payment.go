package models

import "time"

// Frequency is how often an automated payment recurs
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyBiWeekly  Frequency = "bi-weekly"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

// Frequencies lists every valid frequency
var Frequencies = []Frequency{
	FrequencyMonthly,
	FrequencyBiWeekly,
	FrequencyWeekly,
	FrequencyQuarterly,
	FrequencyAnnual,
}

// Valid reports whether f is one of Frequencies
func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if v == f {
			return true
		}
	}
	return false
}

// AutomatedPayment is a detected or user-declared recurring charge
type AutomatedPayment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Vendor         string    `json:"vendor"`
	Amount         float64   `json:"amount"` // Always positive
	Frequency      Frequency `json:"frequency"`
	Category       Category  `json:"category"`
	LastOccurrence time.Time `json:"lastOccurrence"`
	Confidence     float64   `json:"confidence"` // 0..1
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// step advances t by one cycle of the payment frequency
func (p AutomatedPayment) step(t time.Time) time.Time {
	switch p.Frequency {
	case FrequencyBiWeekly:
		return t.AddDate(0, 0, 14)
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return t.AddDate(0, 3, 0)
	case FrequencyAnnual:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// NextExpected returns the first occurrence strictly after from, derived
// from LastOccurrence. It returns false when the last occurrence is unknown.
func (p AutomatedPayment) NextExpected(from time.Time) (time.Time, bool) {
	if p.LastOccurrence.IsZero() {
		return time.Time{}, false
	}
	next := p.step(p.LastOccurrence)
	for !next.After(from) {
		next = p.step(next)
	}
	return next, true
}
