package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.AlertScanIntervalMinutes)
	assert.Equal(t, 3000, cfg.LedgerLockTimeoutMS)
}

func TestLoad_RejectsNonPositiveDurations(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero scan interval", "ALERT_SCAN_INTERVAL_MINUTES", "0"},
		{"negative scan interval", "ALERT_SCAN_INTERVAL_MINUTES", "-5"},
		{"zero lock timeout", "LEDGER_LOCK_TIMEOUT_MS", "0"},
		{"negative cache ttl", "ITEM_CACHE_TTL_SECONDS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			cfg, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_AcceptsOverrides(t *testing.T) {
	t.Setenv("ALERT_SCAN_INTERVAL_MINUTES", "5")
	t.Setenv("LEDGER_LOCK_TIMEOUT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.AlertScanIntervalMinutes)
	assert.Equal(t, 250, cfg.LedgerLockTimeoutMS)
}
