package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/money-dashboard/internal/kvstore"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = kvstore.ErrNotFound
	// ErrEmailTaken is returned when registering an email that already has an account
	ErrEmailTaken = errors.New("email already registered")
)

// Cache TTLs
const (
	SessionTTL      = 24 * time.Hour
	DashboardTTL    = 5 * time.Minute
	SearchTTL       = time.Minute
	CalculationsTTL = 5 * time.Minute
	AnalysisTTL     = time.Hour
)

// Key layout
func userKey(id string) string {
	return "user:" + id
}

func credentialsKey(id string) string {
	return "user:" + id + ":auth"
}

func settingsKey(id string) string {
	return "user:" + id + ":settings"
}

func automatedPaymentsKey(id string) string {
	return "user:" + id + ":automated-payments"
}

func alertsKey(id string) string {
	return "user:" + id + ":alerts"
}

func emailKey(email string) string {
	return "user-email:" + email
}

func plaidItemKey(itemID string) string {
	return "plaid-item:" + itemID
}

func sessionKey(id string) string {
	return "session:" + id
}

func transactionPrefix(userID string) string {
	return "transaction:" + userID + ":"
}

func transactionKey(userID, id string) string {
	return transactionPrefix(userID) + id
}

func analysisKey(userID, start, end string) string {
	return fmt.Sprintf("user:%s:analysis:%s_%s", userID, start, end)
}

// DashboardCacheKey is the cache key of a user's dashboard
func DashboardCacheKey(userID string) string {
	return "dashboard:" + userID
}

// SearchCacheKey is the cache key of one search query
func SearchCacheKey(userID, query string) string {
	return "search:" + userID + ":" + query
}

// CalculationsCacheKey is the cache key of one calculation
func CalculationsCacheKey(userID, key string) string {
	return "calculations:" + userID + ":" + key
}

// Repository provides typed access to the key/value store
type Repository struct {
	kv  kvstore.Store
	now func() time.Time
}

// NewRepository initializes a new repository
func NewRepository(kv kvstore.Store) *Repository {
	return &Repository{kv: kv, now: time.Now}
}

// SetClock overrides the time source used for timestamps
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// Store exposes the underlying key/value store
func (r *Repository) Store() kvstore.Store {
	return r.kv
}

func (r *Repository) get(ctx context.Context, key string, dst interface{}) error {
	return kvstore.GetJSON(ctx, r.kv, key, dst)
}

func (r *Repository) set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	return kvstore.SetJSON(ctx, r.kv, key, v, ttl)
}

// GetCache loads a cached value. It reports false on a miss.
func (r *Repository) GetCache(ctx context.Context, key string, dst interface{}) (bool, error) {
	err := r.get(ctx, key, dst)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetCache stores a value under key for ttl
func (r *Repository) SetCache(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	return r.set(ctx, key, v, ttl)
}

// InvalidateUserCache drops every cached view of a user's data
func (r *Repository) InvalidateUserCache(ctx context.Context, userID string) error {
	if err := r.kv.Delete(ctx, DashboardCacheKey(userID)); err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	if _, err := r.kv.DeletePrefix(ctx, SearchCacheKey(userID, "")); err != nil {
		return fmt.Errorf("failed to invalidate search cache: %w", err)
	}
	if _, err := r.kv.DeletePrefix(ctx, CalculationsCacheKey(userID, "")); err != nil {
		return fmt.Errorf("failed to invalidate calculations cache: %w", err)
	}
	return nil
}

// SweepExpired removes expired keys from the store
func (r *Repository) SweepExpired(ctx context.Context) (int64, error) {
	return r.kv.SweepExpired(ctx)
}
