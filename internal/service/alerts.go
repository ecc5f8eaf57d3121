package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/money-dashboard/internal/alerts"
	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/metrics"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/repository"
)

// Alert actions
const (
	AlertActionRead    = "read"
	AlertActionDismiss = "dismiss"
)

// ListAlerts returns the user's alerts that were not dismissed
func (s *Service) ListAlerts(ctx context.Context, userID string) ([]models.Alert, error) {
	return s.repo.ActiveAlerts(ctx, userID)
}

// UnreadAlertCount counts the user's unread alerts
func (s *Service) UnreadAlertCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadAlertCount(ctx, userID)
}

// AlertAction marks an alert read or dismisses it and returns a confirmation
func (s *Service) AlertAction(ctx context.Context, userID, action, alertID string) (string, error) {
	if alertID == "" {
		return "", newError(ErrInvalidInput, "Alert ID is required")
	}

	var (
		err     error
		message string
	)
	switch action {
	case AlertActionRead:
		err = s.repo.MarkAlertRead(ctx, userID, alertID)
		message = "Alert marked as read"
	case AlertActionDismiss:
		err = s.repo.DismissAlert(ctx, userID, alertID)
		message = "Alert dismissed"
	default:
		return "", newError(ErrInvalidInput, "Invalid action")
	}
	if err != nil {
		return "", notFound(err, "Alert")
	}
	s.invalidate(ctx, userID)
	return message, nil
}

// EvaluateAlerts runs the alert rules for one user, stores alerts not raised
// before and e-mails the new warnings when notifications are on
func (s *Service) EvaluateAlerts(ctx context.Context, userID string) ([]models.Alert, error) {
	st, err := s.settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListAutomatedPayments(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	since := min(
		now.AddDate(0, 0, -alerts.RecentDays).Format(models.DateLayout),
		time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format(models.DateLayout),
	)
	txns, err := s.repo.ListTransactions(ctx, userID, repository.TransactionFilter{StartDate: since})
	if err != nil {
		return nil, err
	}

	raised := alerts.Evaluate(alerts.Input{
		UserID:            userID,
		Now:               now,
		Outlook:           s.outlook(st, s.currentBalance(ctx, st), payments),
		Transactions:      txns,
		AutomatedPayments: payments,
	})
	added, err := s.repo.AddAlerts(ctx, userID, raised)
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return added, nil
	}

	for _, a := range added {
		s.metrics.AlertsTotal.WithLabelValues(string(a.Type)).Inc()
	}
	s.invalidate(ctx, userID)
	s.notify(ctx, userID, added)
	return added, nil
}

func (s *Service) notify(ctx context.Context, userID string, added []models.Alert) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	worth := alerts.Notifiable(added)
	if len(worth) == 0 {
		return
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		s.log.Errorf("Failed to load user %s for alert e-mail: %v", userID, err)
		return
	}
	if err := s.notifier.SendAlerts(user.Email, user.Name, worth); err != nil {
		s.log.Errorf("Failed to e-mail alerts to user %s: %v", userID, err)
		return
	}
	s.log.Infof("E-mailed %d alerts to user %s", len(worth), userID)
}

// RunAlertJobs evaluates and prunes alerts for every user with settings
func (s *Service) RunAlertJobs(ctx context.Context) error {
	all, err := s.repo.ListSettings(ctx)
	if err != nil {
		s.metrics.JobRunsTotal.WithLabelValues("alerts", metrics.Outcome(err)).Inc()
		return err
	}

	var errs []error
	raised, pruned := 0, 0
	for _, st := range all {
		added, err := s.EvaluateAlerts(ctx, st.UserID)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", st.UserID, err))
			continue
		}
		raised += len(added)
		n, err := s.repo.PruneAlerts(ctx, st.UserID)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", st.UserID, err))
			continue
		}
		pruned += n
	}

	err = errors.Join(errs...)
	s.metrics.JobRunsTotal.WithLabelValues("alerts", metrics.Outcome(err)).Inc()
	s.log.Infof("Alert job: %d users, %d alerts raised, %d pruned", len(all), raised, pruned)
	return err
}

// RunScheduledAnalyses analyzes users whose schedule is due: daily users on
// every run, weekly users on Mondays
func (s *Service) RunScheduledAnalyses(ctx context.Context) error {
	all, err := s.repo.ListSettings(ctx)
	if err != nil {
		s.metrics.JobRunsTotal.WithLabelValues("analysis", metrics.Outcome(err)).Inc()
		return err
	}
	if s.analyzer == nil {
		s.log.Debug("Skipping scheduled analyses, analyzer not configured")
		return nil
	}

	monday := s.now().Weekday() == time.Monday
	var errs []error
	ran := 0
	for _, st := range all {
		due := st.AnalysisSchedule == models.ScheduleDaily || (st.AnalysisSchedule == models.ScheduleWeekly && monday)
		if !due {
			continue
		}
		_, err := s.runAnalysis(ctx, st.UserID, s.recentRange(), "scheduled")
		if errors.Is(err, analysis.ErrNoTransactions) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", st.UserID, err))
			continue
		}
		ran++
	}

	err = errors.Join(errs...)
	s.metrics.JobRunsTotal.WithLabelValues("analysis", metrics.Outcome(err)).Inc()
	s.log.Infof("Scheduled analysis job: %d analyses run", ran)
	return err
}

// SweepExpired deletes expired cache and session rows
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.SweepExpired(ctx)
	s.metrics.JobRunsTotal.WithLabelValues("sweep", metrics.Outcome(err)).Inc()
	if err != nil {
		return 0, err
	}
	s.metrics.ExpiredKeysSwept.Add(float64(n))
	if n > 0 {
		s.log.Infof("Swept %d expired keys", n)
	}
	return n, nil
}
