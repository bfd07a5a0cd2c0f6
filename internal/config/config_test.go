package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := NewViper()
	v.Set("token", "test-token")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Token)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "wordle.db", cfg.DatabaseDSN)
	assert.Equal(t, "wordle", cfg.ChannelName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Equal(t, 5, cfg.SummaryLimit)
	assert.Equal(t, 12, cfg.UsernameMaxLength)
	assert.Equal(t, "*/5 * * * *", cfg.ScanCron)
	assert.Equal(t, "0 9 * * *", cfg.SummaryCron)
	assert.True(t, cfg.SyncCommands)
}

func TestLoadRequiresToken(t *testing.T) {
	v := NewViper()

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	v := NewViper()
	v.Set("token", "test-token")
	v.Set("database.driver", "oracle")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	v := NewViper()
	v.Set("token", "test-token")
	v.Set("timezone", "Mars/Olympus_Mons")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestLoadRejectsNonPositiveLimit(t *testing.T) {
	v := NewViper()
	v.Set("token", "test-token")
	v.Set("summary.limit", 0)

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary.limit")
}

func TestLocation(t *testing.T) {
	cfg := Config{Timezone: "Europe/London"}

	location, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", location.String())
}
