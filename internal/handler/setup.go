package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/service"
)

// SetupStatus handles GET /api/setup?action=status
func (h *Handler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	if action := r.URL.Query().Get("action"); action != "" && action != "status" {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid action")
		return
	}
	status, err := h.svc.SetupStatus(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to check setup status")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}

// InitializeSetup handles POST /api/setup/initialize
func (h *Handler) InitializeSetup(w http.ResponseWriter, r *http.Request) {
	var req service.SetupRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.svc.InitializeSetup(r.Context(), user(r).ID, req)
	if err != nil {
		h.fail(w, r, err, "Failed to initialize setup")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// CompleteSetup handles POST /api/setup/complete
func (h *Handler) CompleteSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AutomatedPayments json.RawMessage `json:"automatedPayments"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	raw := bytes.TrimSpace(req.AutomatedPayments)
	if len(raw) == 0 || raw[0] != '[' {
		middleware.WriteError(w, http.StatusBadRequest, "Automated payments must be an array")
		return
	}
	var payments []models.AutomatedPayment
	if err := json.Unmarshal(raw, &payments); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid payment data")
		return
	}

	res, err := h.svc.CompleteSetup(r.Context(), user(r).ID, payments)
	if err != nil {
		h.fail(w, r, err, "Failed to complete setup")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
