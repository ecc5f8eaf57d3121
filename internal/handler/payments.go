package handler

import (
	"net/http"

	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/service"
	"github.com/gorilla/mux"
)

func (h *Handler) ListAutomatedPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.ListAutomatedPayments(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to get automated payments")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"automatedPayments": payments})
}

// UpcomingPayments handles GET /api/automated-payments/upcoming?days=
func (h *Handler) UpcomingPayments(w http.ResponseWriter, r *http.Request) {
	upcoming, err := h.svc.UpcomingPayments(r.Context(), user(r).ID, queryInt(r, "days"))
	if err != nil {
		h.fail(w, r, err, "Failed to get upcoming payments")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"upcomingPayments": upcoming})
}

func (h *Handler) CreateAutomatedPayment(w http.ResponseWriter, r *http.Request) {
	var req models.AutomatedPayment
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, err := h.svc.CreateAutomatedPayment(r.Context(), user(r).ID, req)
	if err != nil {
		h.fail(w, r, err, "Failed to create automated payment")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{"automatedPayment": p})
}

func (h *Handler) UpdateAutomatedPayment(w http.ResponseWriter, r *http.Request) {
	var patch service.PaymentPatch
	if err := decode(r, &patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, err := h.svc.UpdateAutomatedPayment(r.Context(), user(r).ID, mux.Vars(r)["id"], patch)
	if err != nil {
		h.fail(w, r, err, "Failed to update automated payment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"automatedPayment": p})
}

func (h *Handler) DeleteAutomatedPayment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAutomatedPayment(r.Context(), user(r).ID, mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err, "Failed to delete automated payment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": "Automated payment deleted"})
}
