package handler

import (
	"errors"
	"net/http"

	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/service"
)

// Alerts handles GET /api/alerts, or the unread count with ?action=count
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	userID := user(r).ID
	if r.URL.Query().Get("action") == "count" {
		count, err := h.svc.UnreadAlertCount(r.Context(), userID)
		if err != nil {
			h.fail(w, r, err, "Failed to get alerts")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
		return
	}

	alerts, err := h.svc.ListAlerts(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "Failed to get alerts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// AlertAction handles POST /api/alerts {action: read|dismiss, alertId}.
// An unknown alert is reported with success=false rather than an error.
func (h *Handler) AlertAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string `json:"action"`
		AlertID string `json:"alertId"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	message, err := h.svc.AlertAction(r.Context(), user(r).ID, req.Action, req.AlertID)
	if errors.Is(err, service.ErrNotFound) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": false, "message": err.Error()})
		return
	}
	if err != nil {
		h.fail(w, r, err, "Failed to perform alert action")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": message})
}
