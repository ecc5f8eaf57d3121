package models

import "time"

// User represents a user in the system
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credentials holds the password hash, stored apart from the user record
type Credentials struct {
	PasswordHash string `json:"hashedPassword"`
}

// Session is a server-side login session
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnalysisSchedule controls when AI analysis runs for a user
type AnalysisSchedule string

const (
	ScheduleManual AnalysisSchedule = "manual"
	ScheduleDaily  AnalysisSchedule = "daily"
	ScheduleWeekly AnalysisSchedule = "weekly"
)

// BonusRange is the expected bonus deposit range
type BonusRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// UserSettings holds per-user financial and bank-link settings
type UserSettings struct {
	UserID                string           `json:"userId"`
	NextBonusDate         string           `json:"nextBonusDate,omitempty"` // Format: YYYY-MM-DD
	PaycheckDepositAmount *float64         `json:"paycheckDepositAmount,omitempty"`
	LastPaycheckDate      string           `json:"lastPaycheckDate,omitempty"`
	BonusAmountRange      *BonusRange      `json:"bonusAmountRange,omitempty"`
	PlaidAccessToken      string           `json:"plaidAccessToken,omitempty"` // Encrypted
	PlaidItemID           string           `json:"plaidItemId,omitempty"`
	PlaidCursor           string           `json:"plaidCursor,omitempty"`
	AnalysisSchedule      AnalysisSchedule `json:"analysisSchedule"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
}

// BankConnected reports whether a Plaid item is linked
func (s *UserSettings) BankConnected() bool {
	return s != nil && s.PlaidAccessToken != "" && s.PlaidItemID != ""
}
