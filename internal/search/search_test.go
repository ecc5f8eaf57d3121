package search

import (
	"math"
	"testing"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []models.Transaction {
	return []models.Transaction{
		{ID: "t1", Amount: -12.99, Date: "2026-10-01", Vendor: "Netflix", Description: "Monthly plan", Category: models.CategoryMedia, Type: models.TypeAutomatedPayment},
		{ID: "t2", Amount: 2500, Date: "2026-10-03", Vendor: "ACME Payroll", Description: "Salary", Category: models.CategoryOther, Type: models.TypePaycheck},
		{ID: "t3", Amount: -54.10, Date: "2026-10-05", Vendor: "Whole Foods", Description: "groceries", Category: models.CategoryGroceries, Type: models.TypeManualCharge},
		{ID: "t4", Amount: -1400, Date: "2026-10-01", Vendor: "Oak Street Apartments", Description: "Rent October", Category: models.CategoryRent, Type: models.TypeAutomatedPayment},
		{ID: "t5", Amount: -33.50, Date: "2026-09-28", Vendor: "Netflix", Description: "Family upgrade", Category: models.CategoryMedia, Type: models.TypeManualCharge},
		{ID: "t6", Amount: -8.25, Date: "2026-09-20", Vendor: "Blue Bottle", Description: "coffee with netflix team", Category: models.CategoryDining, Type: models.TypeManualCharge},
	}
}

func ids(txns []models.Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.ID
	}
	return out
}

func ptr(f float64) *float64 { return &f }

func TestSearch_DefaultsSortByDateDesc(t *testing.T) {
	res := Search(fixture(), Options{})

	assert.Equal(t, 6, res.TotalCount)
	assert.Equal(t, []string{"t3", "t2", "t1", "t4", "t5", "t6"}, ids(res.Transactions))
	assert.Equal(t, DateRange{Min: "2026-09-20", Max: "2026-10-05"}, res.Facets.DateRange)
}

func TestSearch_QueryMatchesVendorOrDescription(t *testing.T) {
	res := Search(fixture(), Options{Query: "NETFLIX", SortOrder: SortAsc})

	assert.Equal(t, []string{"t6", "t5", "t1"}, ids(res.Transactions))
	assert.Equal(t, 2, res.Facets.Categories[models.CategoryMedia])
	assert.Equal(t, 1, res.Facets.Categories[models.CategoryDining])
}

func TestSearch_VendorIsVendorOnly(t *testing.T) {
	res := Search(fixture(), Options{Vendor: "netflix"})
	assert.ElementsMatch(t, []string{"t1", "t5"}, ids(res.Transactions))
}

func TestSearch_ConjunctiveFilters(t *testing.T) {
	res := Search(fixture(), Options{
		Category:  models.CategoryMedia,
		Type:      models.TypeManualCharge,
		MinAmount: ptr(20),
		StartDate: "2026-09-01",
		EndDate:   "2026-09-30",
	})

	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "t5", res.Transactions[0].ID)
}

func TestSearch_AmountBoundsUseMagnitude(t *testing.T) {
	res := Search(fixture(), Options{MinAmount: ptr(50), MaxAmount: ptr(2500), SortBy: SortByAmount})
	assert.Equal(t, []string{"t2", "t4", "t3"}, ids(res.Transactions))
}

func TestSearch_SortByVendorIsStable(t *testing.T) {
	res := Search(fixture(), Options{SortBy: SortByVendor, SortOrder: "asc"})
	assert.Equal(t, []string{"t2", "t6", "t1", "t5", "t4", "t3"}, ids(res.Transactions))
}

func TestSearch_PaginationKeepsTotalsAndFacets(t *testing.T) {
	all := fixture()
	for offset := 0; offset <= len(all)+2; offset++ {
		res := Search(all, Options{Limit: 2, Offset: offset})

		assert.Equal(t, len(all), res.TotalCount)
		assert.GreaterOrEqual(t, res.TotalCount, len(res.Transactions))
		assert.LessOrEqual(t, len(res.Transactions), 2)

		sum := 0
		for _, n := range res.Facets.Categories {
			sum += n
		}
		assert.Equal(t, res.TotalCount, sum)
	}
}

func TestSearch_HugeLimitWithOffset(t *testing.T) {
	res := Search(fixture(), Options{Limit: math.MaxInt, Offset: 2})
	assert.Equal(t, []string{"t1", "t4", "t5", "t6"}, ids(res.Transactions))
	assert.Equal(t, 6, res.TotalCount)

	res = Search(fixture(), Options{Limit: math.MaxInt, Offset: math.MaxInt})
	assert.Empty(t, res.Transactions)
}

func TestSearch_DoesNotReorderInput(t *testing.T) {
	all := fixture()
	Search(all, Options{SortBy: SortByAmount})
	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5", "t6"}, ids(all))
}

func TestSearch_NoMatches(t *testing.T) {
	res := Search(fixture(), Options{Query: "nothing like this"})

	assert.Equal(t, 0, res.TotalCount)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Facets.Categories)
	assert.Equal(t, DateRange{}, res.Facets.DateRange)
}

func TestSuggestions(t *testing.T) {
	txns := fixture()

	assert.Equal(t, []string{"Netflix"}, Suggestions(txns, "net", FieldVendor, 0))
	assert.Equal(t, []string{"Oak Street Apartments"}, Suggestions(txns, "OAK", FieldVendor, 10))
	assert.Equal(t, []string{"Monthly plan"}, Suggestions(txns, "mo", FieldDescription, 10))
	assert.Len(t, Suggestions(txns, "", FieldVendor, 3), 3)
	assert.Empty(t, Suggestions(txns, "zzz", FieldVendor, 10))
}

func TestPaginate(t *testing.T) {
	p := Paginate(51, PageOptions{Page: 2, PageSize: 25})
	assert.Equal(t, Pagination{Page: 2, PageSize: 25, TotalCount: 51, TotalPages: 3, HasNextPage: true, HasPreviousPage: true}, p)

	p = Paginate(0, PageOptions{})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.PageSize)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)

	opts := PageOptions{Page: -3, PageSize: 500}
	assert.Equal(t, 0, opts.Offset())
	assert.Equal(t, MaxPageSize, opts.Limit())
	assert.Equal(t, 50, PageOptions{Page: 3, PageSize: 25}.Offset())

	huge := PageOptions{Page: math.MaxInt, PageSize: 25}
	assert.Positive(t, huge.Offset())
	assert.Equal(t, math.MaxInt/25, huge.Normalize().Page)
	res := Search(fixture(), Options{Limit: huge.Limit(), Offset: huge.Offset()})
	assert.Empty(t, res.Transactions)
	assert.False(t, Paginate(6, huge).HasNextPage)
}
