package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3*time.Minute, cfg.Rules.ExtensionWindow)
	assert.Equal(t, 3*time.Minute, cfg.Rules.ExtensionDuration)
	assert.Equal(t, 24*time.Hour, cfg.Rules.MinAccountAge)
	assert.Equal(t, int64(500_000), cfg.Rules.HighPriceContactBar)
	assert.Equal(t, 3, cfg.Rules.MaxActivePerSeller)
	assert.Equal(t, 1*time.Second, cfg.Rules.SweepInterval)
}

func TestRulesValidate(t *testing.T) {
	rules := Rules{
		ExtensionWindow:    3 * time.Minute,
		ExtensionDuration:  3 * time.Minute,
		MaxActivePerSeller: 3,
	}
	require.NoError(t, rules.Validate())

	bad := rules
	bad.ExtensionWindow = 0
	require.Error(t, bad.Validate())

	bad = rules
	bad.MaxActivePerSeller = 0
	require.Error(t, bad.Validate())

	bad = rules
	bad.MaxPlaceBidRetries = -1
	require.Error(t, bad.Validate())
}
