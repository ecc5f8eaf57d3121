// Package search filters, facets and paginates a user's transactions in memory.
package search

import (
	"math"
	"sort"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/models"
)

// Sort keys
const (
	SortByDate   = "date"
	SortByAmount = "amount"
	SortByVendor = "vendor"
)

// Sort directions
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// DefaultLimit is the page size used when Options.Limit is unset
const DefaultLimit = 25

// Options are the filter criteria for Search. Zero values mean "no filter".
type Options struct {
	Query     string                 `json:"query,omitempty"`
	Vendor    string                 `json:"vendor,omitempty"`
	Category  models.Category        `json:"category,omitempty"`
	Type      models.TransactionType `json:"type,omitempty"`
	MinAmount *float64               `json:"minAmount,omitempty"`
	MaxAmount *float64               `json:"maxAmount,omitempty"`
	StartDate string                 `json:"startDate,omitempty"`
	EndDate   string                 `json:"endDate,omitempty"`
	SortBy    string                 `json:"sortBy,omitempty"`
	SortOrder string                 `json:"sortOrder,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
	Offset    int                    `json:"offset,omitempty"`
}

// DateRange is the earliest and latest date in a result set
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Facets are counts over the whole filtered set, not just the returned page
type Facets struct {
	Categories map[models.Category]int        `json:"categories"`
	Types      map[models.TransactionType]int `json:"types"`
	DateRange  DateRange                      `json:"dateRange"`
}

// Result is one page of matches
type Result struct {
	Transactions []models.Transaction `json:"transactions"`
	TotalCount   int                  `json:"totalCount"`
	Facets       Facets               `json:"facets"`
}

type predicate func(t *models.Transaction) bool

// Search applies every filter in opts, computes facets over the matches,
// then sorts and pages them. The input slice is not modified.
func Search(txns []models.Transaction, opts Options) Result {
	preds := predicates(opts)

	filtered := make([]models.Transaction, 0, len(txns))
	for i := range txns {
		if matchAll(&txns[i], preds) {
			filtered = append(filtered, txns[i])
		}
	}

	facets := facetsOf(filtered)
	sortTransactions(filtered, opts.SortBy, opts.SortOrder)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	start := min(offset, len(filtered))
	end := start + min(limit, len(filtered)-start)

	return Result{
		Transactions: filtered[start:end],
		TotalCount:   len(filtered),
		Facets:       facets,
	}
}

func predicates(opts Options) []predicate {
	var preds []predicate

	if opts.Query != "" {
		q := strings.ToLower(opts.Query)
		preds = append(preds, func(t *models.Transaction) bool {
			return strings.Contains(strings.ToLower(t.Vendor), q) ||
				strings.Contains(strings.ToLower(t.Description), q)
		})
	}
	if opts.Vendor != "" {
		v := strings.ToLower(opts.Vendor)
		preds = append(preds, func(t *models.Transaction) bool {
			return strings.Contains(strings.ToLower(t.Vendor), v)
		})
	}
	if opts.Category != "" {
		preds = append(preds, func(t *models.Transaction) bool { return t.Category == opts.Category })
	}
	if opts.Type != "" {
		preds = append(preds, func(t *models.Transaction) bool { return t.Type == opts.Type })
	}
	if opts.MinAmount != nil {
		lo := *opts.MinAmount
		preds = append(preds, func(t *models.Transaction) bool { return math.Abs(t.Amount) >= lo })
	}
	if opts.MaxAmount != nil {
		hi := *opts.MaxAmount
		preds = append(preds, func(t *models.Transaction) bool { return math.Abs(t.Amount) <= hi })
	}
	if opts.StartDate != "" {
		preds = append(preds, func(t *models.Transaction) bool { return t.Date >= opts.StartDate })
	}
	if opts.EndDate != "" {
		preds = append(preds, func(t *models.Transaction) bool { return t.Date <= opts.EndDate })
	}

	return preds
}

func matchAll(t *models.Transaction, preds []predicate) bool {
	for _, p := range preds {
		if !p(t) {
			return false
		}
	}
	return true
}

func facetsOf(txns []models.Transaction) Facets {
	f := Facets{
		Categories: make(map[models.Category]int),
		Types:      make(map[models.TransactionType]int),
	}
	for _, t := range txns {
		f.Categories[t.Category]++
		f.Types[t.Type]++
		if t.Date == "" {
			continue
		}
		if f.DateRange.Min == "" || t.Date < f.DateRange.Min {
			f.DateRange.Min = t.Date
		}
		if t.Date > f.DateRange.Max {
			f.DateRange.Max = t.Date
		}
	}
	return f
}

func sortTransactions(txns []models.Transaction, by, order string) {
	var less func(a, b *models.Transaction) bool
	switch by {
	case SortByAmount:
		less = func(a, b *models.Transaction) bool { return math.Abs(a.Amount) < math.Abs(b.Amount) }
	case SortByVendor:
		less = func(a, b *models.Transaction) bool { return a.Vendor < b.Vendor }
	default:
		less = func(a, b *models.Transaction) bool { return a.Date < b.Date }
	}

	desc := !strings.EqualFold(order, SortAsc)
	sort.SliceStable(txns, func(i, j int) bool {
		if desc {
			return less(&txns[j], &txns[i])
		}
		return less(&txns[i], &txns[j])
	})
}

// Field selects which text field Suggestions completes
type Field string

const (
	FieldVendor      Field = "vendor"
	FieldDescription Field = "description"
)

// DefaultSuggestionLimit caps Suggestions when no limit is given
const DefaultSuggestionLimit = 10

// Suggestions returns distinct values of field that start with prefix,
// case-insensitively, in the order they first appear.
func Suggestions(txns []models.Transaction, prefix string, field Field, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	p := strings.ToLower(prefix)
	seen := make(map[string]struct{})
	out := []string{}

	for _, t := range txns {
		value := t.Vendor
		if field == FieldDescription {
			value = t.Description
		}
		if value == "" || !strings.HasPrefix(strings.ToLower(value), p) {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
		if len(out) == limit {
			break
		}
	}
	return out
}
