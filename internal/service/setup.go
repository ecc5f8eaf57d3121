package service

import (
	"context"
	"errors"
	"math"

	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/models"
)

// SetupProgress flags each completed onboarding step
type SetupProgress struct {
	Bank     bool `json:"bank"`
	Bonus    bool `json:"bonus"`
	Payments bool `json:"payments"`
}

// SetupStatus is the user's onboarding state
type SetupStatus struct {
	IsSetupComplete      bool          `json:"isSetupComplete"`
	HasBankConnection    bool          `json:"hasBankConnection"`
	HasBonusDate         bool          `json:"hasBonusDate"`
	HasAutomatedPayments bool          `json:"hasAutomatedPayments"`
	SetupProgress        SetupProgress `json:"setupProgress"`
}

// SetupRequest configures bonuses during onboarding
type SetupRequest struct {
	BonusDate string `json:"bonusDate"`
	HasBonus  bool   `json:"hasBonus"`
}

// SetupSummary counts what the onboarding analysis found
type SetupSummary struct {
	TotalTransactions      int `json:"totalTransactions"`
	AutomatedPaymentsFound int `json:"automatedPaymentsFound"`
	AnomaliesFound         int `json:"anomaliesFound"`
	PaychecksFound         int `json:"paychecksFound"`
	BonusesFound           int `json:"bonusesFound"`
}

// SetupInitResult lists candidate automated payments for the user to confirm
type SetupInitResult struct {
	Message           string                    `json:"message"`
	AutomatedPayments []models.AutomatedPayment `json:"automatedPayments"`
	AnalysisSummary   *SetupSummary             `json:"analysisSummary,omitempty"`
}

// SetupCompleteResult reports the confirmed payments
type SetupCompleteResult struct {
	Message                string `json:"message"`
	AutomatedPaymentsCount int    `json:"automatedPaymentsCount"`
}

// SetupStatus reports which onboarding steps the user has completed
func (s *Service) SetupStatus(ctx context.Context, userID string) (*SetupStatus, error) {
	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := SetupProgress{
		Bank:     st.BankConnected(),
		Bonus:    st.NextBonusDate != "",
		Payments: len(payments) > 0,
	}
	return &SetupStatus{
		IsSetupComplete:      progress.Bank && progress.Bonus && progress.Payments,
		HasBankConnection:    progress.Bank,
		HasBonusDate:         progress.Bonus,
		HasAutomatedPayments: progress.Payments,
		SetupProgress:        progress,
	}, nil
}

// InitializeSetup stores the bonus configuration and analyzes the recent
// transactions, returning the detected automated payments for review
func (s *Service) InitializeSetup(ctx context.Context, userID string, req SetupRequest) (*SetupInitResult, error) {
	bonusDate := ""
	if req.HasBonus {
		if req.BonusDate == "" {
			return nil, newError(ErrInvalidInput, "Bonus date is required when bonuses are enabled")
		}
		d, err := s.parseDay(req.BonusDate)
		if err != nil {
			return nil, newError(ErrInvalidInput, "Invalid date format, expected YYYY-MM-DD")
		}
		if !d.After(s.now()) {
			return nil, newError(ErrInvalidInput, "Bonus date must be in the future")
		}
		bonusDate = req.BonusDate
	}

	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	st.NextBonusDate = bonusDate
	if st.PaycheckDepositAmount == nil {
		st.PaycheckDepositAmount = s.config.PaycheckDepositAmount
	}
	if st.BonusAmountRange == nil {
		st.BonusAmountRange = s.bonusRange(nil)
	}
	if err := s.repo.SaveSettings(ctx, st); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)

	res, txns, err := s.analyze(ctx, userID, s.recentRange(), "setup")
	if errors.Is(err, analysis.ErrNoTransactions) {
		return &SetupInitResult{
			Message:           "No transactions found for analysis",
			AutomatedPayments: []models.AutomatedPayment{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.applyAnalysis(ctx, userID, res, txns, false); err != nil {
		return nil, err
	}
	if err := s.repo.SaveAnalysis(ctx, res); err != nil {
		return nil, err
	}

	return &SetupInitResult{
		Message:           "Analysis complete",
		AutomatedPayments: res.AutomatedPayments,
		AnalysisSummary: &SetupSummary{
			TotalTransactions:      len(txns),
			AutomatedPaymentsFound: len(res.AutomatedPayments),
			AnomaliesFound:         len(res.Anomalies),
			PaychecksFound:         len(res.Paychecks),
			BonusesFound:           len(res.Bonuses),
		},
	}, nil
}

// CompleteSetup replaces the user's automated payments with the confirmed list
func (s *Service) CompleteSetup(ctx context.Context, userID string, payments []models.AutomatedPayment) (*SetupCompleteResult, error) {
	now := s.now()
	confirmed := make([]models.AutomatedPayment, 0, len(payments))
	for i, p := range payments {
		if err := validatePayment(p); err != nil {
			return nil, newError(ErrInvalidInput, "Invalid payment data at index %d: %v", i, err)
		}
		p.UserID = userID
		p.Amount = math.Abs(p.Amount)
		p.Confidence = UserConfirmedConfidence
		if p.ID == "" {
			p.ID = newPaymentID()
		}
		if p.LastOccurrence.IsZero() {
			p.LastOccurrence = now
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		confirmed = append(confirmed, p)
	}

	if err := s.repo.ReplaceAutomatedPayments(ctx, userID, confirmed); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	s.log.Infof("Setup completed for user %s with %d automated payments", userID, len(confirmed))

	if _, err := s.EvaluateAlerts(ctx, userID); err != nil {
		s.log.Warnf("Failed to evaluate alerts after setup for user %s: %v", userID, err)
	}

	return &SetupCompleteResult{
		Message:                "Setup completed successfully",
		AutomatedPaymentsCount: len(confirmed),
	}, nil
}
