package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/google/uuid"
)

// amountTolerance is how close two amounts must be to describe the same payment
const amountTolerance = 0.01

// ListAutomatedPayments returns a user's automated payments
func (r *Repository) ListAutomatedPayments(ctx context.Context, userID string) ([]models.AutomatedPayment, error) {
	var payments []models.AutomatedPayment
	err := r.get(ctx, automatedPaymentsKey(userID), &payments)
	if errors.Is(err, ErrNotFound) {
		return []models.AutomatedPayment{}, nil
	}
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.AutomatedPayment{}
	}
	return payments, nil
}

// ReplaceAutomatedPayments overwrites the whole list
func (r *Repository) ReplaceAutomatedPayments(ctx context.Context, userID string, payments []models.AutomatedPayment) error {
	if payments == nil {
		payments = []models.AutomatedPayment{}
	}
	if err := r.set(ctx, automatedPaymentsKey(userID), payments, 0); err != nil {
		return fmt.Errorf("failed to save automated payments: %w", err)
	}
	return nil
}

// GetAutomatedPayment finds one payment by id
func (r *Repository) GetAutomatedPayment(ctx context.Context, userID, id string) (*models.AutomatedPayment, error) {
	payments, err := r.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		if payments[i].ID == id {
			return &payments[i], nil
		}
	}
	return nil, ErrNotFound
}

// SaveAutomatedPayment inserts p, or replaces the payment with the same id
func (r *Repository) SaveAutomatedPayment(ctx context.Context, p *models.AutomatedPayment) error {
	payments, err := r.ListAutomatedPayments(ctx, p.UserID)
	if err != nil {
		return err
	}
	now := r.now()
	if p.ID == "" {
		p.ID = "ap_" + uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	replaced := false
	for i := range payments {
		if payments[i].ID == p.ID {
			payments[i] = *p
			replaced = true
			break
		}
	}
	if !replaced {
		payments = append(payments, *p)
	}
	return r.ReplaceAutomatedPayments(ctx, p.UserID, payments)
}

// UpdateAutomatedPayment applies fn to the payment with the given id
func (r *Repository) UpdateAutomatedPayment(ctx context.Context, userID, id string, fn func(p *models.AutomatedPayment)) (*models.AutomatedPayment, error) {
	payments, err := r.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		if payments[i].ID != id {
			continue
		}
		fn(&payments[i])
		payments[i].ID = id
		payments[i].UserID = userID
		payments[i].UpdatedAt = r.now()
		if err := r.ReplaceAutomatedPayments(ctx, userID, payments); err != nil {
			return nil, err
		}
		updated := payments[i]
		return &updated, nil
	}
	return nil, ErrNotFound
}

// DeleteAutomatedPayment removes a payment by id
func (r *Repository) DeleteAutomatedPayment(ctx context.Context, userID, id string) error {
	payments, err := r.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return err
	}
	kept := payments[:0]
	for _, p := range payments {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(payments) {
		return ErrNotFound
	}
	return r.ReplaceAutomatedPayments(ctx, userID, kept)
}

// SamePayment reports whether two payments describe the same recurring charge:
// same vendor (case-insensitive) and amounts within a cent.
func SamePayment(a, b models.AutomatedPayment) bool {
	return strings.EqualFold(strings.TrimSpace(a.Vendor), strings.TrimSpace(b.Vendor)) &&
		math.Abs(a.Amount-b.Amount) < amountTolerance+1e-9
}

// MergeAutomatedPayments folds incoming into the stored list. Matches keep
// their id and creation time; everything else is appended.
func (r *Repository) MergeAutomatedPayments(ctx context.Context, userID string, incoming []models.AutomatedPayment) ([]models.AutomatedPayment, error) {
	merged, err := r.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := r.now()

	for _, p := range incoming {
		p.UserID = userID
		p.UpdatedAt = now

		idx := -1
		for i := range merged {
			if SamePayment(merged[i], p) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			p.ID = merged[idx].ID
			p.CreatedAt = merged[idx].CreatedAt
			if p.LastOccurrence.Before(merged[idx].LastOccurrence) {
				p.LastOccurrence = merged[idx].LastOccurrence
			}
			merged[idx] = p
			continue
		}
		if p.ID == "" {
			p.ID = "ap_" + uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		merged = append(merged, p)
	}

	if err := r.ReplaceAutomatedPayments(ctx, userID, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// UpcomingPayments returns payments whose next expected date falls within
// daysAhead of now, soonest first.
func (r *Repository) UpcomingPayments(ctx context.Context, userID string, daysAhead int) ([]models.UpcomingPayment, error) {
	payments, err := r.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Upcoming(payments, r.now(), daysAhead), nil
}

// Upcoming selects payments due within daysAhead of now
func Upcoming(payments []models.AutomatedPayment, now time.Time, daysAhead int) []models.UpcomingPayment {
	until := now.AddDate(0, 0, daysAhead)
	out := []models.UpcomingPayment{}
	for _, p := range payments {
		next, ok := p.NextExpected(now)
		if !ok || next.After(until) {
			continue
		}
		out = append(out, models.UpcomingPayment{AutomatedPayment: p, NextExpected: next.Format(models.DateLayout)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextExpected < out[j].NextExpected })
	return out
}
