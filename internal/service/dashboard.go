package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/finance"
	"github.com/Dan9191/money-dashboard/internal/metrics"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/repository"
)

const (
	recentTransactionsCount = 10
	upcomingPaymentDays     = 30
)

// Calculation types
const (
	CalculationOutlook  = "outlook"
	CalculationSpending = "spending"
)

// CalculationResult is either an outlook or a spending breakdown
type CalculationResult struct {
	Type        string                   `json:"type"`
	Calculation *models.FinancialOutlook `json:"calculation,omitempty"`
	Spending    []models.CategorySpend   `json:"spending,omitempty"`
	Period      finance.Period           `json:"period,omitempty"`
	Cached      bool                     `json:"cached"`
}

// Dashboard assembles the dashboard for a user, served from cache when fresh
func (s *Service) Dashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	var cached models.Dashboard
	hit, err := s.repo.GetCache(ctx, repository.DashboardCacheKey(userID), &cached)
	if err != nil {
		s.log.Warnf("Failed to read dashboard cache for user %s: %v", userID, err)
	}
	s.metrics.CacheLookups.WithLabelValues("dashboard", metrics.CacheResult(hit)).Inc()
	if hit {
		return &cached, nil
	}

	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	balance := s.currentBalance(ctx, st)
	payments, err := s.repo.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	outlook := s.outlook(st, balance, payments)

	recent, err := s.repo.ListTransactions(ctx, userID, repository.TransactionFilter{Limit: recentTransactionsCount})
	if err != nil {
		return nil, err
	}
	activeAlerts, err := s.repo.ActiveAlerts(ctx, userID)
	if err != nil {
		return nil, err
	}
	spending, err := s.spending(ctx, userID, finance.PeriodMonthly)
	if err != nil {
		return nil, err
	}

	dashboard := &models.Dashboard{
		CurrentBalance:     balance,
		FinancialOutlook:   outlook,
		RecentTransactions: recent,
		AutomatedPayments:  payments,
		UpcomingPayments:   repository.Upcoming(payments, now, upcomingPaymentDays),
		Alerts:             activeAlerts,
		SpendingByCategory: spending,
		LastUpdated:        now,
	}

	ttl := s.config.DashboardCacheTTL
	if ttl <= 0 {
		ttl = repository.DashboardTTL
	}
	if err := s.repo.SetCache(ctx, repository.DashboardCacheKey(userID), dashboard, ttl); err != nil {
		s.log.Warnf("Failed to cache dashboard for user %s: %v", userID, err)
	}
	return dashboard, nil
}

// Calculations runs an outlook or spending calculation, cached per type and period
func (s *Service) Calculations(ctx context.Context, userID, typ, period string, force bool) (*CalculationResult, error) {
	if typ != CalculationOutlook && typ != CalculationSpending {
		return nil, newError(ErrInvalidInput, "Invalid calculation type")
	}
	p := finance.ParsePeriod(period)
	key := repository.CalculationsCacheKey(userID, typ)
	if typ == CalculationSpending {
		key = repository.CalculationsCacheKey(userID, fmt.Sprintf("%s:%s", typ, p))
	}

	if !force {
		var cached CalculationResult
		hit, err := s.repo.GetCache(ctx, key, &cached)
		if err != nil {
			s.log.Warnf("Failed to read calculations cache for user %s: %v", userID, err)
		}
		s.metrics.CacheLookups.WithLabelValues("calculations", metrics.CacheResult(hit)).Inc()
		if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	result := &CalculationResult{Type: typ}
	switch typ {
	case CalculationOutlook:
		st, err := s.settings(ctx, userID)
		if err != nil {
			return nil, err
		}
		payments, err := s.repo.ListAutomatedPayments(ctx, userID)
		if err != nil {
			return nil, err
		}
		outlook := s.outlook(st, s.currentBalance(ctx, st), payments)
		result.Calculation = &outlook
	case CalculationSpending:
		spending, err := s.spending(ctx, userID, p)
		if err != nil {
			return nil, err
		}
		result.Spending = spending
		result.Period = p
	}

	if err := s.repo.SetCache(ctx, key, result, repository.CalculationsTTL); err != nil {
		s.log.Warnf("Failed to cache calculation for user %s: %v", userID, err)
	}
	return result, nil
}

// outlook projects the user's cash flow from their settings and payments
func (s *Service) outlook(st *models.UserSettings, balance float64, payments []models.AutomatedPayment) models.FinancialOutlook {
	in := finance.OutlookInput{
		Now:               s.now(),
		CurrentBalance:    balance,
		AutomatedPayments: payments,
		PaycheckAmount:    s.paycheckAmount(st),
	}
	if st.NextBonusDate != "" {
		if d, err := s.parseDay(st.NextBonusDate); err == nil {
			in.NextBonusDate = &d
		} else {
			s.log.Warnf("Ignoring malformed bonus date %q for user %s", st.NextBonusDate, st.UserID)
		}
	}
	if st.LastPaycheckDate != "" {
		if d, err := s.parseDay(st.LastPaycheckDate); err == nil {
			in.LastPaycheckDate = &d
		}
	}
	return finance.CalculateOutlook(in)
}

// spending aggregates debits of the current period by category
func (s *Service) spending(ctx context.Context, userID string, p finance.Period) ([]models.CategorySpend, error) {
	now := s.now()
	txns, err := s.repo.ListTransactions(ctx, userID, repository.TransactionFilter{
		StartDate: p.Start(now).Format(models.DateLayout),
	})
	if err != nil {
		return nil, err
	}
	return finance.SpendingByCategory(txns, p, now), nil
}

// currentBalance sums the depository balances of the linked bank. It is 0
// when no bank is linked or the bank cannot be reached.
func (s *Service) currentBalance(ctx context.Context, st *models.UserSettings) float64 {
	if !st.BankConnected() || s.bank == nil {
		return 0
	}
	token, err := s.accessToken(st)
	if err != nil {
		s.log.Errorf("Failed to decrypt access token for user %s: %v", st.UserID, err)
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	accounts, err := s.bank.GetBalances(ctx, token)
	if err != nil {
		s.log.Errorf("Failed to fetch balances for user %s: %v", st.UserID, err)
		return 0
	}

	total := 0.0
	for _, a := range accounts {
		if a.Type != "" && !strings.EqualFold(a.Type, "depository") {
			continue
		}
		switch {
		case a.Balances.Available != nil:
			total += *a.Balances.Available
		case a.Balances.Current != nil:
			total += *a.Balances.Current
		}
	}
	return total
}
