package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port         string
	DBConn       string
	LogLevel     string
	JWTSecret    string
	CookieSecure bool

	HMACSecret    string
	EncryptionKey string

	PlaidClientID       string
	PlaidSecret         string
	PlaidEnv            string
	PlaidBaseURL        string
	PlaidWebhookURL     string
	PlaidVerifyWebhooks bool

	GeminiAPIKey string
	GeminiModel  string

	PaycheckDepositAmount *float64
	BonusAmountMin        *float64
	BonusAmountMax        *float64

	DashboardCacheTTL time.Duration
	SearchCacheTTL    time.Duration

	SMTPHost           string
	SMTPPort           string
	SMTPUsername       string
	SMTPPassword       string
	SenderEmail        string
	AlertEmailsEnabled bool

	CronAlerts   string
	CronAnalysis string
	CronSweep    string

	LoginRateLimit float64
	LoginBurst     int
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=money sslmode=disable"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", os.Getenv("SESSION_SECRET")),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		HMACSecret:    getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		EncryptionKey: getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),

		PlaidClientID:       getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:         getEnv("PLAID_SECRET", ""),
		PlaidEnv:            getEnv("PLAID_ENV", "sandbox"),
		PlaidBaseURL:        getEnv("PLAID_BASE_URL", ""),
		PlaidWebhookURL:     getEnv("PLAID_WEBHOOK_URL", ""),
		PlaidVerifyWebhooks: getEnvBool("PLAID_VERIFY_WEBHOOKS", true),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		DashboardCacheTTL: getEnvSeconds("CACHE_TTL_DASHBOARD", 300),
		SearchCacheTTL:    getEnvSeconds("CACHE_TTL_SEARCH", 60),

		SMTPHost:           getEnv("SMTP_HOST", "localhost"),
		SMTPPort:           getEnv("SMTP_PORT", "1025"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SenderEmail:        getEnv("SENDER_EMAIL", "alerts@money-dashboard.local"),
		AlertEmailsEnabled: getEnvBool("ALERT_EMAILS_ENABLED", false),

		CronAlerts:   getEnv("CRON_ALERTS", "0 7 * * *"),
		CronAnalysis: getEnv("CRON_ANALYSIS", "0 3 * * *"),
		CronSweep:    getEnv("CRON_SWEEP", "@hourly"),
	}

	var err error
	if cfg.PaycheckDepositAmount, err = getEnvFloat("PAYCHECK_DEPOSIT_AMOUNT"); err != nil {
		return nil, err
	}
	if cfg.BonusAmountMin, err = getEnvFloat("BONUS_AMOUNT_MIN"); err != nil {
		return nil, err
	}
	if cfg.BonusAmountMax, err = getEnvFloat("BONUS_AMOUNT_MAX"); err != nil {
		return nil, err
	}
	rate, err := getEnvFloat("LOGIN_RATE_PER_SECOND")
	if err != nil {
		return nil, err
	}
	cfg.LoginRateLimit = 0.2
	if rate != nil {
		cfg.LoginRateLimit = *rate
	}
	cfg.LoginBurst, err = strconv.Atoi(getEnv("LOGIN_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("LOGIN_BURST must be an integer: %w", err)
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if _, err := cfg.EncryptionKeyBytes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EncryptionKeyBytes decodes the hex encryption key into an AES key
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be hex: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 16, 24 or 32 bytes, got %d", len(key))
	}
}

// BonusRange returns the configured bonus range when both bounds are set
func (c *Config) BonusRange() (lo, hi float64, ok bool) {
	if c.BonusAmountMin == nil || c.BonusAmountMax == nil {
		return 0, 0, false
	}
	return *c.BonusAmountMin, *c.BonusAmountMax, true
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, strconv.FormatBool(defaultVal))))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultSeconds)))
	if err != nil || n <= 0 {
		n = defaultSeconds
	}
	return time.Duration(n) * time.Second
}

func getEnvFloat(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return &v, nil
}
