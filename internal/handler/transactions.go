package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/search"
	"github.com/Dan9191/money-dashboard/internal/service"
	"github.com/gorilla/mux"
)

// maxStatementBytes bounds uploaded OFX statements
const maxStatementBytes = 10 << 20

// Search handles GET /api/transactions/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := search.Options{
		Query:     q.Get("q"),
		Vendor:    q.Get("vendor"),
		Category:  models.Category(q.Get("category")),
		Type:      models.TransactionType(q.Get("type")),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	var err error
	if opts.MinAmount, err = queryFloat(r, "minAmount"); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.MaxAmount, err = queryFloat(r, "maxAmount"); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := search.PageOptions{Page: queryInt(r, "page"), PageSize: queryInt(r, "pageSize")}

	res, err := h.svc.Search(r.Context(), user(r).ID, opts, page, !queryBool(r, "noCache"))
	if err != nil {
		h.fail(w, r, err, "Search failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

type advancedSearchRequest struct {
	Query   string `json:"query"`
	Filters struct {
		Vendor    string                 `json:"vendor"`
		Category  models.Category        `json:"category"`
		Type      models.TransactionType `json:"type"`
		MinAmount *float64               `json:"minAmount"`
		MaxAmount *float64               `json:"maxAmount"`
		StartDate string                 `json:"startDate"`
		EndDate   string                 `json:"endDate"`
	} `json:"filters"`
	Sort struct {
		By    string `json:"by"`
		Order string `json:"order"`
	} `json:"sort"`
	Pagination search.PageOptions `json:"pagination"`
}

// AdvancedSearch handles POST /api/transactions/search. Results are never
// cached and the response carries no query echo.
func (h *Handler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	var req advancedSearchRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	opts := search.Options{
		Query:     req.Query,
		Vendor:    req.Filters.Vendor,
		Category:  req.Filters.Category,
		Type:      req.Filters.Type,
		MinAmount: req.Filters.MinAmount,
		MaxAmount: req.Filters.MaxAmount,
		StartDate: req.Filters.StartDate,
		EndDate:   req.Filters.EndDate,
		SortBy:    req.Sort.By,
		SortOrder: req.Sort.Order,
	}

	res, err := h.svc.Search(r.Context(), user(r).ID, opts, req.Pagination, false)
	if err != nil {
		h.fail(w, r, err, "Search failed")
		return
	}
	res.Query = nil
	middleware.WriteJSON(w, http.StatusOK, res)
}

// SearchSuggestions handles GET /api/transactions/search/suggestions?q=&field=&limit=
func (h *Handler) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	field := r.URL.Query().Get("field")
	if field == "" {
		field = string(search.FieldVendor)
	}

	suggestions, err := h.svc.Suggestions(r.Context(), user(r).ID, prefix, field, queryInt(r, "limit"))
	if err != nil {
		h.fail(w, r, err, "Failed to get suggestions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"field":       field,
		"prefix":      prefix,
	})
}

// Categories lists the valid categories and transaction types
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": models.Categories,
		"types":      models.TransactionTypes,
	})
}

// Categorize handles PUT /api/transactions/{id}/categorize
func (h *Handler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category models.Category        `json:"category"`
		Type     models.TransactionType `json:"type"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.svc.Categorize(r.Context(), user(r).ID, mux.Vars(r)["id"], req.Category, req.Type)
	if err != nil {
		h.fail(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transaction": t,
		"message":     "Transaction updated successfully",
	})
}

// BulkCategorize handles POST /api/transactions/categorize/bulk
func (h *Handler) BulkCategorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Updates []service.CategoryUpdate `json:"updates"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.BulkCategorize(r.Context(), user(r).ID, req.Updates)
	if err != nil {
		h.fail(w, r, err, "Failed to update transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// CategorySuggestions proposes categories for uncategorized transactions
func (h *Handler) CategorySuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.svc.UncategorizedSuggestions(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to get suggestions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// CreateTransaction handles POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req service.ManualTransaction
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.svc.CreateManualTransaction(r.Context(), user(r).ID, req)
	if err != nil {
		h.fail(w, r, err, "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{"transaction": t})
}

// ImportTransactions accepts an OFX statement either as the raw body or as
// the "file" field of a multipart form
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStatementBytes)
	body := io.Reader(r.Body)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Statement file is required")
			return
		}
		defer file.Close()
		body = file
	}

	res, err := h.svc.ImportOFX(r.Context(), user(r).ID, body)
	if err != nil {
		h.fail(w, r, err, "Failed to import statement")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// ResetTransactions handles DELETE /api/transactions
func (h *Handler) ResetTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ResetTransactions(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to delete transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": n,
		"message": fmt.Sprintf("Deleted %d transactions", n),
	})
}

func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}
