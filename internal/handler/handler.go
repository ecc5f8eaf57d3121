package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/config"
	"github.com/Dan9191/money-dashboard/internal/middleware"
	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

type Handler struct {
	svc    *service.Service
	config *config.Config
	log    *logrus.Logger
}

func NewHandler(svc *service.Service, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, config: cfg, log: log}
}

// Routes registers every API route on r
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Public routes
	login := middleware.NewRateLimiter(h.config.LoginRateLimit, h.config.LoginBurst)
	api.Handle("/auth/register", login.Middleware(http.HandlerFunc(h.Register))).Methods(http.MethodPost)
	api.Handle("/auth/login", login.Middleware(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/plaid/webhook", h.PlaidWebhook).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}/categorize", h.Categories).Methods(http.MethodGet)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(h.svc, h.log))

	protected.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	protected.HandleFunc("/calculations", h.Calculations).Methods(http.MethodGet)

	protected.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	protected.HandleFunc("/transactions", h.ResetTransactions).Methods(http.MethodDelete)
	protected.HandleFunc("/transactions/import", h.ImportTransactions).Methods(http.MethodPost)
	protected.HandleFunc("/transactions/search", h.Search).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/search", h.AdvancedSearch).Methods(http.MethodPost)
	protected.HandleFunc("/transactions/search/suggestions", h.SearchSuggestions).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/suggestions", h.CategorySuggestions).Methods(http.MethodGet)
	protected.HandleFunc("/transactions/categorize/bulk", h.BulkCategorize).Methods(http.MethodPost)
	protected.HandleFunc("/transactions/{id}/categorize", h.Categorize).Methods(http.MethodPut)

	protected.HandleFunc("/ai/analyze-transactions", h.Analyze).Methods(http.MethodPost)
	protected.HandleFunc("/ai/analyze-transactions", h.GetAnalysis).Methods(http.MethodGet)

	protected.HandleFunc("/plaid/connect", h.ConnectStatus).Methods(http.MethodGet)
	protected.HandleFunc("/plaid/connect", h.CreateLinkToken).Methods(http.MethodPost)
	protected.HandleFunc("/plaid/connect/exchange", h.ExchangePublicToken).Methods(http.MethodPost)
	protected.HandleFunc("/plaid/sync", h.Sync).Methods(http.MethodPost)
	protected.HandleFunc("/plaid/transactions", h.PlaidTransactions).Methods(http.MethodGet)
	protected.HandleFunc("/plaid/transactions", h.PlaidBalances).Methods(http.MethodPost)

	protected.HandleFunc("/setup", h.SetupStatus).Methods(http.MethodGet)
	protected.HandleFunc("/setup/initialize", h.InitializeSetup).Methods(http.MethodPost)
	protected.HandleFunc("/setup/complete", h.CompleteSetup).Methods(http.MethodPost)

	protected.HandleFunc("/automated-payments", h.ListAutomatedPayments).Methods(http.MethodGet)
	protected.HandleFunc("/automated-payments", h.CreateAutomatedPayment).Methods(http.MethodPost)
	protected.HandleFunc("/automated-payments/upcoming", h.UpcomingPayments).Methods(http.MethodGet)
	protected.HandleFunc("/automated-payments/{id}", h.UpdateAutomatedPayment).Methods(http.MethodPut)
	protected.HandleFunc("/automated-payments/{id}", h.DeleteAutomatedPayment).Methods(http.MethodDelete)

	protected.HandleFunc("/alerts", h.Alerts).Methods(http.MethodGet)
	protected.HandleFunc("/alerts", h.AlertAction).Methods(http.MethodPost)
}

// Health reports that the process is serving
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// user returns the caller set by the auth middleware
func user(r *http.Request) *models.User {
	u, _ := middleware.UserFromContext(r.Context())
	return u
}

// decode reads a JSON body into dst
func decode(r *http.Request, dst interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

// fail maps a service error to a status code. Client errors carry their own
// message; anything else is logged and answered with fallback.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrBankNotConnected):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	var clientErr *service.Error
	if status != http.StatusInternalServerError && errors.As(err, &clientErr) {
		middleware.WriteError(w, status, clientErr.Error())
		return
	}

	h.log.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": middleware.RequestIDFromContext(r.Context()),
	}).Errorf("%s: %v", fallback, err)
	if status == http.StatusInternalServerError {
		middleware.WriteError(w, status, fallback)
		return
	}
	middleware.WriteError(w, status, err.Error())
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	return v
}
