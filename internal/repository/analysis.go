package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/money-dashboard/internal/models"
)

// SaveAnalysis caches an analysis under its date range for AnalysisTTL
func (r *Repository) SaveAnalysis(ctx context.Context, a *models.AnalysisResult) error {
	key := analysisKey(a.UserID, a.DateRange.Start, a.DateRange.End)
	if err := r.set(ctx, key, a, AnalysisTTL); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetAnalysis returns the cached analysis for exactly the given range
func (r *Repository) GetAnalysis(ctx context.Context, userID string, dr models.DateRange) (*models.AnalysisResult, error) {
	a := &models.AnalysisResult{}
	if err := r.get(ctx, analysisKey(userID, dr.Start, dr.End), a); err != nil {
		return nil, err
	}
	return a, nil
}
