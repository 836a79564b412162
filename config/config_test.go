package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DATABASE_URL", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.OpsAddr)
	assert.Equal(t, "pool_share", cfg.PayoutPolicy)
	assert.True(t, decimal.NewFromInt(5).Equal(cfg.HouseFeePercent))
	assert.Equal(t, 180*time.Second, cfg.SelectionDuration)
	assert.Equal(t, 8, cfg.RoundLookahead)
	assert.Equal(t, 10, cfg.MatchesPerRound)
	assert.Equal(t, 59049, cfg.MaxVariantsPerCoupon)
	assert.Equal(t, 168*time.Hour, cfg.BiggestWinTTL)
	assert.True(t, cfg.StartingBalance.IsZero())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PAYOUT_POLICY", "coefficient")
	t.Setenv("HOUSE_FEE_PERCENT", "7.5")
	t.Setenv("SELECTION_DURATION", "30s")
	t.Setenv("ROUND_LOOKAHEAD", "3")
	t.Setenv("MATCHES_PER_ROUND", "not-a-number")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, "coefficient", cfg.PayoutPolicy)
	assert.Equal(t, "7.5", cfg.HouseFeePercent.String())
	assert.Equal(t, 30*time.Second, cfg.SelectionDuration)
	assert.Equal(t, 3, cfg.RoundLookahead)
	assert.Equal(t, 10, cfg.MatchesPerRound)
}

func TestLoad_MalformedDecimal(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("HOUSE_FEE_PERCENT", "five")

	_, err := load()
	assert.ErrorContains(t, err, "HOUSE_FEE_PERCENT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			modify: func(c *Config) {},
		},
		{
			name:    "missing database url",
			modify:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "house fee of 100",
			modify:  func(c *Config) { c.HouseFeePercent = decimal.NewFromInt(100) },
			wantErr: "HOUSE_FEE_PERCENT",
		},
		{
			name:    "negative starting balance",
			modify:  func(c *Config) { c.StartingBalance = decimal.NewFromInt(-1) },
			wantErr: "STARTING_BALANCE",
		},
		{
			name:    "bad forced outcome",
			modify:  func(c *Config) { c.ForceOutcome = "3" },
			wantErr: "FORCE_OUTCOME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			cfg.DatabaseURL = "postgres://localhost:5432"
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestSetTestConfig(t *testing.T) {
	defer ResetConfig()

	testCfg := NewTestConfig()
	testCfg.OpsAddr = ":9999"
	SetTestConfig(testCfg)

	assert.Same(t, testCfg, Get())
}
