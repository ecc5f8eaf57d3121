package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/service"
)

// maxWebhookBytes bounds Plaid webhook bodies
const maxWebhookBytes = 64 << 10

// ConnectStatus reports whether the caller has linked a bank
func (h *Handler) ConnectStatus(w http.ResponseWriter, r *http.Request) {
	connected, err := h.svc.ConnectStatus(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to check bank connection")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{
		"hasConnectedBank": connected,
		"bankConnected":    connected,
	})
}

// CreateLinkToken starts a Plaid Link flow
func (h *Handler) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.svc.CreateLinkToken(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to create link token")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"linkToken": token})
}

// ExchangePublicToken finishes the Plaid Link flow
func (h *Handler) ExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicToken string `json:"publicToken"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	itemID, err := h.svc.ExchangePublicToken(r.Context(), user(r).ID, req.PublicToken)
	if err != nil {
		h.fail(w, r, err, "Failed to connect bank account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Bank account connected successfully",
		"itemId":  itemID,
	})
}

// Sync pulls one page of transaction changes from Plaid
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cursor string `json:"cursor"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	res, err := h.svc.Sync(r.Context(), user(r).ID, req.Cursor)
	if err != nil {
		h.fail(w, r, err, "Failed to sync transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// PlaidTransactions handles GET /api/plaid/transactions?startDate=&endDate=&accountId=
func (h *Handler) PlaidTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.PlaidTransactions(r.Context(), user(r).ID, q.Get("startDate"), q.Get("endDate"), q.Get("accountId"))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": res.Transactions,
		"accounts":     res.Accounts,
		"totalCount":   res.TotalTransactions,
	})
}

// PlaidBalances returns the caller's account balances
func (h *Handler) PlaidBalances(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.PlaidBalances(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch account balance")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

// PlaidWebhook acknowledges every verified webhook, even when processing
// fails, so Plaid does not retry bad payloads
func (h *Handler) PlaidWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err = h.svc.HandleWebhook(r.Context(), body, r.Header.Get("Plaid-Verification"))
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid signature")
	case err != nil:
		h.log.Errorf("Webhook processing error: %v", err)
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "Processing failed"})
	default:
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
