package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
[anthropic]
api_key = "sk-test"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "info", cfg.Logs.Level)
	assert.Equal(t, "static", cfg.Calendar.Provider)
	assert.Equal(t, 10000, cfg.Guard.MaxSenders)
	assert.Equal(t, "UTC", cfg.Service.OwnerTimezone)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-from-env")
	path := writeConfig(t, `
[anthropic]
api_key = "${TEST_ANTHROPIC_KEY}"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Anthropic.APIKey)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	path := writeConfig(t, `
[service]
owner_name = "Alex"
`)

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_TelegramTokenRequiredWhenEnabled(t *testing.T) {
	path := writeConfig(t, `
[anthropic]
api_key = "sk-test"

[telegram]
enabled = true
`)

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_GoogleProviderRequiresBookCalendar(t *testing.T) {
	path := writeConfig(t, `
[anthropic]
api_key = "sk-test"

[calendar]
provider = "google"
`)

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_CalendarWatchList(t *testing.T) {
	path := writeConfig(t, `
[anthropic]
api_key = "sk-test"

[calendar]
provider = "google"

[calendar.book]
calendar_id = "primary"
display_name = "Work"

[[calendar.watch]]
calendar_id = "family@group.calendar.google.com"
display_name = "Family"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.Calendar.Book.CalendarID)
	require.Len(t, cfg.Calendar.Watch, 1)
	assert.Equal(t, "Family", cfg.Calendar.Watch[0].DisplayName)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "bot",
		Password: "secret", DBName: "schedulebot", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=bot password=secret dbname=schedulebot sslmode=disable",
		d.DSN())
}
