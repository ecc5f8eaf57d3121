package handler

import (
	"net/http"

	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/service"
)

// Dashboard returns the dashboard of the caller
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), user(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to load dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, d)
}

// Calculations handles GET /api/calculations?type=outlook|spending&period=&force=
func (h *Handler) Calculations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := q.Get("type")
	if typ == "" {
		typ = service.CalculationOutlook
	}

	res, err := h.svc.Calculations(r.Context(), user(r).ID, typ, q.Get("period"), queryBool(r, "force"))
	if err != nil {
		h.fail(w, r, err, "Calculation failed")
		return
	}
	if res.Type == service.CalculationSpending {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"spending": res.Spending,
			"cached":   res.Cached,
			"period":   res.Period,
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"calculation": res.Calculation,
		"cached":      res.Cached,
	})
}
