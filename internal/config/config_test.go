package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sandbox", cfg.PlaidEnv)
	assert.True(t, cfg.PlaidVerifyWebhooks)
	assert.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, time.Minute, cfg.SearchCacheTTL)
	assert.Nil(t, cfg.PaycheckDepositAmount)
	assert.Equal(t, 5, cfg.LoginBurst)

	key, err := cfg.EncryptionKeyBytes()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestNewConfig_SessionSecretFallback(t *testing.T) {
	t.Setenv("SESSION_SECRET", "from-session")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-session", cfg.JWTSecret)
}

func TestNewConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := NewConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestNewConfig_FinanceAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PAYCHECK_DEPOSIT_AMOUNT", "2150.50")
	t.Setenv("BONUS_AMOUNT_MIN", "5000")
	t.Setenv("BONUS_AMOUNT_MAX", "9000")
	t.Setenv("CACHE_TTL_DASHBOARD", "120")
	t.Setenv("PLAID_VERIFY_WEBHOOKS", "false")

	cfg, err := NewConfig()
	require.NoError(t, err)

	require.NotNil(t, cfg.PaycheckDepositAmount)
	assert.Equal(t, 2150.50, *cfg.PaycheckDepositAmount)
	lo, hi, ok := cfg.BonusRange()
	assert.True(t, ok)
	assert.Equal(t, 5000.0, lo)
	assert.Equal(t, 9000.0, hi)
	assert.Equal(t, 2*time.Minute, cfg.DashboardCacheTTL)
	assert.False(t, cfg.PlaidVerifyWebhooks)
}

func TestNewConfig_InvalidValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	t.Setenv("PAYCHECK_DEPOSIT_AMOUNT", "lots")
	_, err := NewConfig()
	assert.ErrorContains(t, err, "PAYCHECK_DEPOSIT_AMOUNT")

	t.Setenv("PAYCHECK_DEPOSIT_AMOUNT", "")
	t.Setenv("ENCRYPTION_KEY", "abcd")
	_, err = NewConfig()
	assert.ErrorContains(t, err, "ENCRYPTION_KEY")
}
