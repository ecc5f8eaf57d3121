package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/google/uuid"
)

// UserConfirmedConfidence is assigned to payments the user entered or confirmed
const UserConfirmedConfidence = 0.9

// PaymentPatch holds the fields of an automated payment to change
type PaymentPatch struct {
	Vendor         *string           `json:"vendor,omitempty"`
	Amount         *float64          `json:"amount,omitempty"`
	Frequency      *models.Frequency `json:"frequency,omitempty"`
	Category       *models.Category  `json:"category,omitempty"`
	LastOccurrence *time.Time        `json:"lastOccurrence,omitempty"`
}

func newPaymentID() string {
	return "ap_" + uuid.NewString()
}

func validatePayment(p models.AutomatedPayment) error {
	switch {
	case strings.TrimSpace(p.Vendor) == "":
		return errors.New("vendor is required")
	case p.Amount == 0 || math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0):
		return errors.New("amount is required")
	case !p.Frequency.Valid():
		return errors.New("invalid frequency")
	case !p.Category.Valid():
		return errors.New("invalid category")
	}
	return nil
}

// ListAutomatedPayments returns the user's automated payments
func (s *Service) ListAutomatedPayments(ctx context.Context, userID string) ([]models.AutomatedPayment, error) {
	return s.repo.ListAutomatedPayments(ctx, userID)
}

// UpcomingPayments returns payments due within days
func (s *Service) UpcomingPayments(ctx context.Context, userID string, days int) ([]models.UpcomingPayment, error) {
	if days <= 0 {
		days = upcomingPaymentDays
	}
	return s.repo.UpcomingPayments(ctx, userID, days)
}

// CreateAutomatedPayment adds a payment the user declared by hand
func (s *Service) CreateAutomatedPayment(ctx context.Context, userID string, p models.AutomatedPayment) (*models.AutomatedPayment, error) {
	if err := validatePayment(p); err != nil {
		return nil, newError(ErrInvalidInput, "Invalid payment: %v", err)
	}
	p.ID = newPaymentID()
	p.UserID = userID
	p.Vendor = strings.TrimSpace(p.Vendor)
	p.Amount = math.Abs(p.Amount)
	p.Confidence = UserConfirmedConfidence
	p.CreatedAt = time.Time{}
	if p.LastOccurrence.IsZero() {
		p.LastOccurrence = s.now()
	}
	if err := s.repo.SaveAutomatedPayment(ctx, &p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return &p, nil
}

// UpdateAutomatedPayment applies patch to one payment
func (s *Service) UpdateAutomatedPayment(ctx context.Context, userID, id string, patch PaymentPatch) (*models.AutomatedPayment, error) {
	if patch.Vendor != nil && strings.TrimSpace(*patch.Vendor) == "" {
		return nil, newError(ErrInvalidInput, "Vendor cannot be empty")
	}
	if patch.Amount != nil && *patch.Amount == 0 {
		return nil, newError(ErrInvalidInput, "Amount cannot be zero")
	}
	if patch.Frequency != nil && !patch.Frequency.Valid() {
		return nil, newError(ErrInvalidInput, "Invalid frequency")
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return nil, newError(ErrInvalidInput, "Invalid category")
	}

	updated, err := s.repo.UpdateAutomatedPayment(ctx, userID, id, func(p *models.AutomatedPayment) {
		if patch.Vendor != nil {
			p.Vendor = strings.TrimSpace(*patch.Vendor)
		}
		if patch.Amount != nil {
			p.Amount = math.Abs(*patch.Amount)
		}
		if patch.Frequency != nil {
			p.Frequency = *patch.Frequency
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.LastOccurrence != nil {
			p.LastOccurrence = *patch.LastOccurrence
		}
		p.Confidence = UserConfirmedConfidence
	})
	if err != nil {
		return nil, notFound(err, "Automated payment")
	}
	s.invalidate(ctx, userID)
	return updated, nil
}

// DeleteAutomatedPayment removes one payment
func (s *Service) DeleteAutomatedPayment(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteAutomatedPayment(ctx, userID, id); err != nil {
		return notFound(err, "Automated payment")
	}
	s.invalidate(ctx, userID)
	return nil
}
