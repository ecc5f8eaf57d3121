package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/money-dashboard/internal/analysis"
	"github.com/Dan9191/money-dashboard/internal/auth"
	"github.com/Dan9191/money-dashboard/internal/config"
	"github.com/Dan9191/money-dashboard/internal/integrations/plaid"
	"github.com/Dan9191/money-dashboard/internal/metrics"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/repository"
	"github.com/Dan9191/money-dashboard/internal/utils"
	"github.com/sirupsen/logrus"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrConflict         = errors.New("conflict")
	ErrBankNotConnected = errors.New("bank account not connected")
	ErrUnavailable      = errors.New("unavailable")
)

// Error is a client-facing error: Error() is safe to show, Unwrap gives the kind
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// BankClient is the subset of the Plaid client the service uses
type BankClient interface {
	CreateLinkToken(ctx context.Context, userID, webhookURL string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
	GetBalances(ctx context.Context, accessToken string) ([]plaid.Account, error)
	GetTransactions(ctx context.Context, accessToken, start, end string, opts plaid.TransactionsOptions) (*plaid.TransactionsResult, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*plaid.SyncResult, error)
	VerifyWebhook(ctx context.Context, body []byte, header string) error
}

// TransactionAnalyzer produces an AI analysis of a set of transactions
type TransactionAnalyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*models.AnalysisResult, error)
}

// Notifier delivers alerts out of band
type Notifier interface {
	Enabled() bool
	SendAlerts(to, name string, alerts []models.Alert) error
}

// Dependencies are the collaborators of Service. Bank, Analyzer and Notifier
// may be nil when the integration is not configured.
type Dependencies struct {
	Tokens   *auth.Tokens
	Cipher   *utils.Cipher
	Bank     BankClient
	Analyzer TransactionAnalyzer
	Notifier Notifier
}

// Service handles business logic
type Service struct {
	repo     *repository.Repository
	log      *logrus.Logger
	config   *config.Config
	tokens   *auth.Tokens
	cipher   *utils.Cipher
	bank     BankClient
	analyzer TransactionAnalyzer
	notifier Notifier
	metrics  *metrics.Metrics

	now func() time.Time
	wg  sync.WaitGroup
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config, deps Dependencies) *Service {
	return &Service{
		repo:     repo,
		log:      log,
		config:   cfg,
		tokens:   deps.Tokens,
		cipher:   deps.Cipher,
		bank:     deps.Bank,
		analyzer: deps.Analyzer,
		notifier: deps.Notifier,
		metrics:  metrics.NewMetrics(),
		now:      time.Now,
	}
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.repo.SetClock(now)
}

// Wait blocks until background work started by the service has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// background runs fn on its own goroutine with a detached context
func (s *Service) background(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorf("Background task %s panicked: %v", name, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Errorf("Background task %s failed: %v", name, err)
		}
	}()
}

// settings returns the user's settings, or fresh defaults when none exist
func (s *Service) settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	st, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.UserSettings{UserID: userID, AnalysisSchedule: models.ScheduleManual}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return st, nil
}

// paycheckAmount prefers the user's own setting over the configured default
func (s *Service) paycheckAmount(st *models.UserSettings) *float64 {
	if st != nil && st.PaycheckDepositAmount != nil {
		return st.PaycheckDepositAmount
	}
	return s.config.PaycheckDepositAmount
}

// bonusRange prefers the user's own setting over the configured default
func (s *Service) bonusRange(st *models.UserSettings) *models.BonusRange {
	if st != nil && st.BonusAmountRange != nil {
		return st.BonusAmountRange
	}
	if lo, hi, ok := s.config.BonusRange(); ok {
		return &models.BonusRange{Min: lo, Max: hi}
	}
	return nil
}

// parseDay reads a YYYY-MM-DD date in the service clock's location
func (s *Service) parseDay(day string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, day, s.now().Location())
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.repo.InvalidateUserCache(ctx, userID); err != nil {
		s.log.Warnf("Failed to invalidate cache for user %s: %v", userID, err)
	}
}

// notFound converts a repository miss into a client error
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrNotFound, "%s not found", what)
	}
	return err
}
