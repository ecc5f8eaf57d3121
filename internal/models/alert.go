package models

import "time"

// AlertType identifies the rule that raised an alert
type AlertType string

const (
	AlertLowFunds              AlertType = "low_funds"
	AlertUpcomingBonus         AlertType = "upcoming_bonus"
	AlertUnexpectedTransaction AlertType = "unexpected_transaction"
	AlertMissingPayment        AlertType = "missing_payment"
	AlertBonusDetected         AlertType = "bonus_detected"
)

// Severity of an alert
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert is a user-facing notification produced by rule evaluation
type Alert struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"userId"`
	Type        AlertType              `json:"type"`
	Key         string                 `json:"key,omitempty"` // Rule-specific dedupe key
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Severity    Severity               `json:"severity"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Read        bool                   `json:"read"`
	CreatedAt   time.Time              `json:"createdAt"`
	DismissedAt *time.Time             `json:"dismissedAt,omitempty"`
}

// Dismissed reports whether the user dismissed the alert
func (a Alert) Dismissed() bool {
	return a.DismissedAt != nil
}
