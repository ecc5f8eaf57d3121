package service

import (
	"context"
	"errors"

	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/metrics"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/repository"
)

const (
	// AnalysisLookbackDays is the window analyzed after ingestion and by the scheduler
	AnalysisLookbackDays = 90
	// MaxAnalysisRangeDays bounds a requested analysis range
	MaxAnalysisRangeDays = 93
)

// AnalysisResponse is an analysis and whether it came from the cache
type AnalysisResponse struct {
	Analysis *models.AnalysisResult `json:"analysis"`
	Cached   bool                   `json:"cached"`
}

// AnalyzeRange analyzes the user's transactions in [start, end]. A cached
// analysis of the same range is returned unless force is set.
func (s *Service) AnalyzeRange(ctx context.Context, userID, start, end string, force bool) (*AnalysisResponse, error) {
	dr, err := s.validateRange(start, end)
	if err != nil {
		return nil, err
	}

	if !force {
		cached, err := s.repo.GetAnalysis(ctx, userID, dr)
		if err == nil {
			return &AnalysisResponse{Analysis: cached, Cached: true}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	res, err := s.runAnalysis(ctx, userID, dr, "manual")
	if errors.Is(err, analysis.ErrNoTransactions) {
		return nil, newError(ErrNotFound, "No transactions found for the specified date range")
	}
	if err != nil {
		return nil, err
	}
	return &AnalysisResponse{Analysis: res, Cached: false}, nil
}

// GetAnalysis returns the cached analysis of [start, end]
func (s *Service) GetAnalysis(ctx context.Context, userID, start, end string) (*AnalysisResponse, error) {
	dr, err := s.validateRange(start, end)
	if err != nil {
		return nil, err
	}
	res, err := s.repo.GetAnalysis(ctx, userID, dr)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "No analysis found for the specified date range")
	}
	if err != nil {
		return nil, err
	}
	return &AnalysisResponse{Analysis: res, Cached: true}, nil
}

func (s *Service) validateRange(start, end string) (models.DateRange, error) {
	if start == "" || end == "" {
		return models.DateRange{}, newError(ErrInvalidInput, "startDate and endDate are required")
	}
	from, err := s.parseDay(start)
	if err != nil {
		return models.DateRange{}, newError(ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD")
	}
	to, err := s.parseDay(end)
	if err != nil {
		return models.DateRange{}, newError(ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return models.DateRange{}, newError(ErrInvalidInput, "endDate must not be before startDate")
	}
	if to.Sub(from).Hours()/24 > MaxAnalysisRangeDays {
		return models.DateRange{}, newError(ErrInvalidInput, "Date range cannot exceed %d days", MaxAnalysisRangeDays)
	}
	return models.DateRange{Start: start, End: end}, nil
}

// recentRange is the last AnalysisLookbackDays up to today
func (s *Service) recentRange() models.DateRange {
	now := s.now()
	return models.DateRange{
		Start: now.AddDate(0, 0, -AnalysisLookbackDays).Format(models.DateLayout),
		End:   now.Format(models.DateLayout),
	}
}

// analyzeAsync analyzes the recent range in the background
func (s *Service) analyzeAsync(userID, trigger string) {
	s.background("analysis:"+userID, analysisTimeout, func(ctx context.Context) error {
		_, err := s.runAnalysis(ctx, userID, s.recentRange(), trigger)
		if errors.Is(err, analysis.ErrNoTransactions) {
			return nil
		}
		return err
	})
}

// runAnalysis analyzes dr, applies the findings and caches the result
func (s *Service) runAnalysis(ctx context.Context, userID string, dr models.DateRange, trigger string) (*models.AnalysisResult, error) {
	res, txns, err := s.analyze(ctx, userID, dr, trigger)
	if err != nil {
		return nil, err
	}
	if err := s.applyAnalysis(ctx, userID, res, txns, true); err != nil {
		return nil, err
	}
	if err := s.repo.SaveAnalysis(ctx, res); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return res, nil
}

// analyze runs the analyzer over the user's transactions in dr
func (s *Service) analyze(ctx context.Context, userID string, dr models.DateRange, trigger string) (*models.AnalysisResult, []models.Transaction, error) {
	if s.analyzer == nil {
		return nil, nil, newError(ErrUnavailable, "AI analysis is not configured")
	}
	txns, err := s.repo.ListTransactions(ctx, userID, repository.TransactionFilter{StartDate: dr.Start, EndDate: dr.End})
	if err != nil {
		return nil, nil, err
	}
	if len(txns) == 0 {
		return nil, nil, analysis.ErrNoTransactions
	}
	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.analyzer.Analyze(ctx, analysis.Input{
		UserID:         userID,
		Transactions:   txns,
		DateRange:      dr,
		PaycheckAmount: s.paycheckAmount(st),
		BonusRange:     s.bonusRange(st),
	})
	s.metrics.AnalysesTotal.WithLabelValues(trigger, metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, nil, err
	}

	summary := res.Summary()
	s.log.Infof("Analysis for user %s (%s..%s): %d payments, %d anomalies, %d paychecks, %d bonuses",
		userID, dr.Start, dr.End, summary.AutomatedPaymentCount, summary.AnomalyCount, summary.PaycheckCount, summary.BonusCount)
	return res, txns, nil
}

// analysisPatch holds the fields an analysis changes on one transaction
type analysisPatch struct {
	category *models.Category
	typ      *models.TransactionType
}

// applyAnalysis writes the findings back: categories the user has not set,
// paycheck and bonus types and the last paycheck date. Detected automated
// payments are merged into the user's list when mergePayments is set.
func (s *Service) applyAnalysis(ctx context.Context, userID string, res *models.AnalysisResult, txns []models.Transaction, mergePayments bool) error {
	seen := make(map[string]models.Transaction, len(txns))
	for _, t := range txns {
		seen[t.ID] = t
	}
	patches := make(map[string]*analysisPatch)
	patch := func(id string) *analysisPatch {
		p, ok := patches[id]
		if !ok {
			p = &analysisPatch{}
			patches[id] = p
		}
		return p
	}

	for _, m := range res.CategoryMappings {
		if t, ok := seen[m.TransactionID]; ok && t.Category == models.CategoryOther && m.Category != models.CategoryOther {
			c := m.Category
			patch(t.ID).category = &c
		}
	}
	for _, p := range res.Paychecks {
		if _, ok := seen[p.TransactionID]; !ok {
			continue
		}
		typ := models.TypePaycheck
		if p.IsBonus {
			typ = models.TypeBonus
		}
		patch(p.TransactionID).typ = &typ
	}
	for _, b := range res.Bonuses {
		if _, ok := seen[b.TransactionID]; ok {
			typ := models.TypeBonus
			patch(b.TransactionID).typ = &typ
		}
	}

	// Apply onto the stored rows: the user may have recategorized or retyped
	// a transaction while the analysis ran, and those edits win.
	now := s.now()
	lastPaycheck := ""
	for id, p := range patches {
		t, err := s.repo.GetTransaction(ctx, userID, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		before := seen[id]
		updated := false
		if p.category != nil && t.Category == before.Category {
			t.Category = *p.category
			updated = true
		}
		if p.typ != nil && t.Type == before.Type {
			t.Type = *p.typ
			updated = true
		}
		if !updated {
			continue
		}
		if t.Type == models.TypePaycheck {
			lastPaycheck = max(lastPaycheck, t.Date)
		}
		t.UpdatedAt = now
		if err := s.repo.SaveTransaction(ctx, t); err != nil {
			return err
		}
	}

	if mergePayments && len(res.AutomatedPayments) > 0 {
		if _, err := s.repo.MergeAutomatedPayments(ctx, userID, res.AutomatedPayments); err != nil {
			return err
		}
	}

	if lastPaycheck != "" {
		st, err := s.settings(ctx, userID)
		if err != nil {
			return err
		}
		if lastPaycheck > st.LastPaycheckDate {
			st.LastPaycheckDate = lastPaycheck
			if err := s.repo.SaveSettings(ctx, st); err != nil {
				return err
			}
		}
	}
	return nil
}
