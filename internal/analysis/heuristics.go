package analysis

import (
	"math"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
)

const (
	// PaycheckTolerance is how far a deposit may stray from the usual paycheck
	PaycheckTolerance = 50.0
	// bonusHeadroom widens the upper bonus bound
	bonusHeadroom = 1.5
)

// Suggestion is a rule-based category guess for one transaction
type Suggestion struct {
	TransactionID     string                 `json:"transactionId"`
	SuggestedCategory models.Category        `json:"suggestedCategory"`
	SuggestedType     models.TransactionType `json:"suggestedType"`
	Confidence        float64                `json:"confidence"`
}

type rule struct {
	vendor      []string
	description []string
	category    models.Category
	txnType     models.TransactionType
	confidence  float64
}

// rules are checked in order; the first match wins
var rules = []rule{
	{[]string{"electric", "power", "con ed", "national grid"}, []string{"utility"}, models.CategoryUtilities, models.TypeAutomatedPayment, 0.9},
	{[]string{"rent", "apartment", "landlord"}, []string{"rent"}, models.CategoryRent, models.TypeAutomatedPayment, 0.9},
	{[]string{"whole foods", "trader joe", "stop & shop", "wegmans", "grocery"}, []string{"grocery"}, models.CategoryGroceries, models.TypeManualCharge, 0.8},
	{[]string{"restaurant", "cafe", "pizza", "mcdonald", "starbucks"}, []string{"dining"}, models.CategoryDining, models.TypeManualCharge, 0.7},
	{[]string{"netflix", "spotify", "hulu", "amazon prime", "disney"}, []string{"subscription"}, models.CategoryMedia, models.TypeAutomatedPayment, 0.8},
	{[]string{"uber", "lyft", "mbta", "gas", "shell", "exxon"}, nil, models.CategoryTransportation, models.TypeManualCharge, 0.7},
}

// SuggestCategory guesses a category and type from vendor and description
// keywords. Unmatched transactions get other/manual_charge at low confidence.
func SuggestCategory(t models.Transaction) Suggestion {
	vendor := strings.ToLower(t.Vendor)
	description := strings.ToLower(t.Description)

	for _, r := range rules {
		if containsAny(vendor, r.vendor) || containsAny(description, r.description) {
			return Suggestion{TransactionID: t.ID, SuggestedCategory: r.category, SuggestedType: r.txnType, Confidence: r.confidence}
		}
	}
	return Suggestion{TransactionID: t.ID, SuggestedCategory: models.CategoryOther, SuggestedType: models.TypeManualCharge, Confidence: 0.3}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// NeedsCategorization reports whether t still carries placeholder classification
func NeedsCategorization(t models.Transaction) bool {
	return t.Category == "" || t.Category == models.CategoryOther || t.Type == "" || t.Type == models.TypeManualCharge
}

// InBonusRange reports whether amount could be a bonus deposit
func InBonusRange(amount float64, bonus models.BonusRange) bool {
	return amount >= bonus.Min && amount <= bonus.Max*bonusHeadroom
}

// DetectBonusPaycheck reports whether a deposit looks like a quarterly bonus:
// in range and paid late in a quarter-end month or the month after.
func DetectBonusPaycheck(amount float64, date time.Time, bonus models.BonusRange) bool {
	if !InBonusRange(amount, bonus) {
		return false
	}
	month := int(date.Month())
	afterQuarterEnd := month%3 == 0 || (month-1)%3 == 0 && month > 1
	return afterQuarterEnd && date.Day() >= 20
}

// DetectRegularPaycheck reports whether a deposit matches the usual paycheck
func DetectRegularPaycheck(amount, paycheck float64) bool {
	return math.Abs(amount-paycheck) <= PaycheckTolerance
}

// ShouldAnalyze decides whether newly ingested transactions warrant an
// analysis run. Users without known automated payments always qualify, as
// do batches holding a deposit in the bonus range.
func ShouldAnalyze(knownPayments int, added []models.Transaction, bonus *models.BonusRange) bool {
	if knownPayments == 0 {
		return true
	}
	if bonus != nil {
		for _, t := range added {
			if t.Amount > 0 && InBonusRange(t.Amount, *bonus) {
				return true
			}
		}
	}
	return len(added) > 0
}
