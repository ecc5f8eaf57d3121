package handler

import (
	"net/http"

	"github.com/Dan9191/money-dashboard/internal/middleware"
)

// Analyze handles POST /api/ai/analyze-transactions
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		Force     bool   `json:"force"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.AnalyzeRange(r.Context(), user(r).ID, req.StartDate, req.EndDate, req.Force)
	if err != nil {
		h.fail(w, r, err, "Failed to analyze transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// GetAnalysis handles GET /api/ai/analyze-transactions?startDate=&endDate=
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.GetAnalysis(r.Context(), user(r).ID, q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		h.fail(w, r, err, "Failed to get analysis")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
