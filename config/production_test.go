package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_API_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "leadfunnel", cfg.Database.Name)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(9), cfg.Telegram.PollTimeout)
	assert.Equal(t, 600*time.Millisecond, cfg.Telegram.PacingDelay)
	assert.Equal(t, "https://t.me/hr_volodymyr?text=%2B", cfg.Telegram.ManagerContact)
	assert.Equal(t, 10*time.Minute, cfg.Reminder.Delay)
	assert.False(t, cfg.Sheets.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Sheets.Timeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "leadfunnel:", cfg.Cache.KeyPrefix)
	assert.Equal(t, 30*time.Minute, cfg.Cache.SessionTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_API_TOKEN", "123:abc")
	t.Setenv("REMINDER_DELAY", "90s")
	t.Setenv("TELEGRAM_ADMIN_ID", "42")
	t.Setenv("SHEETS_ENABLED", "true")
	t.Setenv("SHEETS_SPREADSHEET_ID", "sheet-id")
	t.Setenv("SHEETS_CREDENTIALS_FILE", "creds.json")
	t.Setenv("CACHE_ENABLED", "true")
	t.Setenv("CACHE_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Reminder.Delay)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.True(t, cfg.Sheets.Enabled)
	assert.Equal(t, "sheet-id", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "localhost:6380", cfg.Cache.Addr())
}

func TestLoad_MissingTokenFails(t *testing.T) {
	t.Setenv("TELEGRAM_API_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "bot",
		Password: "secret",
		Name:     "leadfunnel",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=bot password=secret dbname=leadfunnel sslmode=require",
		d.DSN())
}
