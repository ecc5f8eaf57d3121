package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/integrations/ofx"
	"github.com/Dan9191/money-dashboard/internal/metrics"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/repository"
	"github.com/Dan9191/money-dashboard/internal/search"
	"github.com/Dan9191/money-dashboard/internal/utils"
	"github.com/google/uuid"
)

const (
	minSuggestionPrefix = 2
	maxSuggestionLimit  = 20
	// suggestionAutoApply is the confidence at which imported rows take the suggested category
	suggestionAutoApply = 0.7
)

// SearchQuery echoes the criteria a search ran with
type SearchQuery struct {
	Q         string   `json:"q"`
	Vendor    string   `json:"vendor"`
	Category  string   `json:"category"`
	Type      string   `json:"type"`
	MinAmount *float64 `json:"minAmount,omitempty"`
	MaxAmount *float64 `json:"maxAmount,omitempty"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	SortBy    string   `json:"sortBy"`
	SortOrder string   `json:"sortOrder"`
}

// SearchResponse is one page of search results
type SearchResponse struct {
	Data       []models.Transaction `json:"data"`
	Pagination search.Pagination    `json:"pagination"`
	Facets     search.Facets        `json:"facets"`
	Query      *SearchQuery         `json:"query,omitempty"`
}

// CategoryUpdate changes the category and/or type of one transaction
type CategoryUpdate struct {
	TransactionID string                 `json:"transactionId"`
	Category      models.Category        `json:"category,omitempty"`
	Type          models.TransactionType `json:"type,omitempty"`
}

// BulkResult reports a bulk update
type BulkResult struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ManualTransaction is a transaction entered by hand
type ManualTransaction struct {
	Amount      float64                `json:"amount"`
	Date        string                 `json:"date"`
	Vendor      string                 `json:"vendor"`
	Description string                 `json:"description"`
	Category    models.Category        `json:"category,omitempty"`
	Type        models.TransactionType `json:"type,omitempty"`
}

// ImportResult reports a statement import
type ImportResult struct {
	Statements int `json:"statements"`
	Imported   int `json:"imported"`
	Skipped    int `json:"skipped"`
}

// Search filters the user's transactions. Results are cached under a digest
// of the normalized criteria when useCache is set.
func (s *Service) Search(ctx context.Context, userID string, opts search.Options, page search.PageOptions, useCache bool) (*SearchResponse, error) {
	if opts.SortBy == "" {
		opts.SortBy = search.SortByDate
	}
	opts.SortOrder = strings.ToUpper(opts.SortOrder)
	if opts.SortOrder != search.SortAsc {
		opts.SortOrder = search.SortDesc
	}
	page = page.Normalize()
	opts.Limit = page.Limit()
	opts.Offset = page.Offset()

	key := repository.SearchCacheKey(userID, utils.GenerateHMAC(s.config.HMACSecret,
		opts.Query, opts.Vendor, string(opts.Category), string(opts.Type),
		formatAmount(opts.MinAmount), formatAmount(opts.MaxAmount),
		opts.StartDate, opts.EndDate, opts.SortBy, opts.SortOrder,
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize)))

	if useCache {
		var cached SearchResponse
		hit, err := s.repo.GetCache(ctx, key, &cached)
		if err != nil {
			s.log.Warnf("Failed to read search cache for user %s: %v", userID, err)
		}
		s.metrics.CacheLookups.WithLabelValues("search", metrics.CacheResult(hit)).Inc()
		if hit {
			return &cached, nil
		}
	}

	txns, err := s.repo.ListTransactions(ctx, userID, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	result := search.Search(txns, opts)

	resp := &SearchResponse{
		Data:       result.Transactions,
		Pagination: search.Paginate(result.TotalCount, page),
		Facets:     result.Facets,
		Query: &SearchQuery{
			Q:         opts.Query,
			Vendor:    opts.Vendor,
			Category:  string(opts.Category),
			Type:      string(opts.Type),
			MinAmount: opts.MinAmount,
			MaxAmount: opts.MaxAmount,
			StartDate: opts.StartDate,
			EndDate:   opts.EndDate,
			SortBy:    opts.SortBy,
			SortOrder: opts.SortOrder,
		},
	}

	if useCache {
		ttl := s.config.SearchCacheTTL
		if ttl <= 0 {
			ttl = repository.SearchTTL
		}
		if err := s.repo.SetCache(ctx, key, resp, ttl); err != nil {
			s.log.Warnf("Failed to cache search for user %s: %v", userID, err)
		}
	}
	return resp, nil
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Suggestions completes a vendor or description prefix. Prefixes shorter
// than two characters yield nothing.
func (s *Service) Suggestions(ctx context.Context, userID, prefix, field string, limit int) ([]string, error) {
	f := search.FieldVendor
	switch field {
	case "", string(search.FieldVendor):
	case string(search.FieldDescription):
		f = search.FieldDescription
	default:
		return nil, newError(ErrInvalidInput, "Invalid field")
	}
	if limit <= 0 {
		limit = search.DefaultSuggestionLimit
	}
	limit = min(limit, maxSuggestionLimit)
	if len(strings.TrimSpace(prefix)) < minSuggestionPrefix {
		return []string{}, nil
	}

	txns, err := s.repo.ListTransactions(ctx, userID, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return search.Suggestions(txns, prefix, f, limit), nil
}

// Categorize updates the category and/or type of one transaction
func (s *Service) Categorize(ctx context.Context, userID, transactionID string, category models.Category, typ models.TransactionType) (*models.Transaction, error) {
	if transactionID == "" {
		return nil, newError(ErrInvalidInput, "Transaction ID is required")
	}
	t, err := s.reclassify(ctx, userID, CategoryUpdate{TransactionID: transactionID, Category: category, Type: typ})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return t, nil
}

// BulkCategorize applies each update independently and reports the failures
func (s *Service) BulkCategorize(ctx context.Context, userID string, updates []CategoryUpdate) (*BulkResult, error) {
	if len(updates) == 0 {
		return nil, newError(ErrInvalidInput, "Updates are required")
	}
	res := &BulkResult{Errors: []string{}}
	for _, u := range updates {
		var err error
		if u.Category == "" && u.Type == "" {
			err = newError(ErrInvalidInput, "Category or type is required")
		} else {
			_, err = s.reclassify(ctx, userID, u)
		}
		if err != nil {
			var clientErr *Error
			if !errors.As(err, &clientErr) {
				return nil, err
			}
			res.Failed++
			res.Errors = append(res.Errors, u.TransactionID+": "+err.Error())
			continue
		}
		res.Updated++
	}
	if res.Updated > 0 {
		s.invalidate(ctx, userID)
	}
	return res, nil
}

func (s *Service) reclassify(ctx context.Context, userID string, u CategoryUpdate) (*models.Transaction, error) {
	if u.Category != "" && !u.Category.Valid() {
		return nil, newError(ErrInvalidInput, "Invalid category")
	}
	if u.Type != "" && !u.Type.Valid() {
		return nil, newError(ErrInvalidInput, "Invalid transaction type")
	}
	t, err := s.repo.GetTransaction(ctx, userID, u.TransactionID)
	if err != nil {
		return nil, notFound(err, "Transaction")
	}
	if u.Category != "" {
		t.Category = u.Category
	}
	if u.Type != "" {
		t.Type = u.Type
	}
	t.UpdatedAt = s.now()
	if err := s.repo.SaveTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UncategorizedSuggestions proposes categories for transactions that still
// carry placeholder classification
func (s *Service) UncategorizedSuggestions(ctx context.Context, userID string) ([]analysis.Suggestion, error) {
	txns, err := s.repo.ListTransactions(ctx, userID, repository.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	out := []analysis.Suggestion{}
	for _, t := range txns {
		if analysis.NeedsCategorization(t) {
			out = append(out, analysis.SuggestCategory(t))
		}
	}
	return out, nil
}

// CreateManualTransaction records a transaction entered by the user
func (s *Service) CreateManualTransaction(ctx context.Context, userID string, in ManualTransaction) (*models.Transaction, error) {
	vendor := strings.TrimSpace(in.Vendor)
	if vendor == "" {
		return nil, newError(ErrInvalidInput, "Vendor is required")
	}
	if in.Amount == 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return nil, newError(ErrInvalidInput, "Amount must be a non-zero number")
	}
	if in.Date == "" {
		in.Date = s.today()
	}
	if _, err := s.parseDay(in.Date); err != nil {
		return nil, newError(ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD")
	}
	if in.Category == "" {
		in.Category = models.CategoryOther
	}
	if !in.Category.Valid() {
		return nil, newError(ErrInvalidInput, "Invalid category")
	}
	if in.Type == "" {
		in.Type = models.TypeManualCharge
		if in.Amount > 0 {
			in.Type = models.TypeDeposit
		}
	}
	if !in.Type.Valid() {
		return nil, newError(ErrInvalidInput, "Invalid transaction type")
	}

	t := &models.Transaction{
		ID:          "manual_" + uuid.NewString(),
		UserID:      userID,
		Amount:      in.Amount,
		Date:        in.Date,
		Vendor:      vendor,
		Description: strings.TrimSpace(in.Description),
		Category:    in.Category,
		Type:        in.Type,
	}
	if err := s.repo.SaveTransaction(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return t, nil
}

// ImportOFX stores the transactions of an OFX statement. Rows are keyed by
// account and FITID so importing the same file twice is harmless.
func (s *Service) ImportOFX(ctx context.Context, userID string, r io.Reader) (*ImportResult, error) {
	statements, err := ofx.Parse(r)
	if err != nil {
		return nil, newError(ErrInvalidInput, "Invalid OFX file: %v", err)
	}
	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Statements: len(statements)}
	var added []models.Transaction
	for _, stmt := range statements {
		for _, ot := range stmt.Transactions {
			id := statementLineID(stmt.AccountID, ot.FITID)
			if _, err := s.repo.GetTransaction(ctx, userID, id); err == nil {
				res.Skipped++
				continue
			} else if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}

			t := convertStatementLine(userID, stmt.AccountID, ot)
			if suggestion := analysis.SuggestCategory(t); suggestion.Confidence >= suggestionAutoApply {
				t.Category = suggestion.SuggestedCategory
				if t.IsDebit() {
					t.Type = suggestion.SuggestedType
				}
			}
			s.classify(&t, st)
			if err := s.repo.SaveTransaction(ctx, &t); err != nil {
				return nil, err
			}
			added = append(added, t)
			res.Imported++
		}
	}
	s.metrics.IngestedTotal.Add(float64(res.Imported))

	s.log.Infof("Imported %d OFX transactions for user %s (%d skipped)", res.Imported, userID, res.Skipped)
	if res.Imported > 0 {
		s.afterIngest(ctx, st, added)
	}
	return res, nil
}

// statementLineID scopes a FITID to its account; OFX only promises FITIDs
// are unique per account
func statementLineID(accountID, fitID string) string {
	return "ofx_" + accountID + ":" + fitID
}

func convertStatementLine(userID, accountID string, ot ofx.Transaction) models.Transaction {
	vendor := strings.TrimSpace(ot.Name)
	if vendor == "" {
		vendor = "Unknown"
	}
	description := strings.TrimSpace(ot.Memo)
	if description == "" {
		description = vendor
	}
	typ := models.TypeManualCharge
	if ot.Amount > 0 {
		typ = models.TypeDeposit
	}
	return models.Transaction{
		ID:          statementLineID(accountID, ot.FITID),
		UserID:      userID,
		AccountID:   accountID,
		Amount:      ot.Amount,
		Date:        ot.Date,
		Vendor:      vendor,
		Description: description,
		Category:    models.CategoryOther,
		Type:        typ,
	}
}

// ResetTransactions deletes every stored transaction and rewinds the bank
// sync cursor so the next sync starts over
func (s *Service) ResetTransactions(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteAllTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}
	st, err := s.settings(ctx, userID)
	if err != nil {
		return 0, err
	}
	if st.PlaidCursor != "" {
		st.PlaidCursor = ""
		if err := s.repo.SaveSettings(ctx, st); err != nil {
			return 0, err
		}
	}
	s.invalidate(ctx, userID)
	s.log.Infof("Deleted %d transactions for user %s", n, userID)
	return n, nil
}
