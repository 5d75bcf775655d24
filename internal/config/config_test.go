package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/sentiment"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT", "DATA_PROVIDER", "DATA_BASE_URL", "DATA_API_KEY",
	"STORAGE_DRIVER", "DATA_DIR", "SQLITE_PATH", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"HTTPS_PROXY", "HISTORY_START",
}

// isolate runs the test from an empty directory with no overrides set.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 2.0, cfg.DataSource.RequestsPerSec)
	assert.Equal(t, time.Minute, cfg.FetchTimeout())
	assert.Equal(t, "json", cfg.Storage.Driver)
	assert.Equal(t, filepath.Join("data", "runs.db"), cfg.Storage.RunsDB)
	assert.Equal(t, "0 0 9 * * *", cfg.Schedule.DailyCron)
	assert.Equal(t, sentiment.DefaultIndices, cfg.IndexList())
	assert.False(t, cfg.TelegramEnabled())

	start, err := cfg.HistoryStart()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC), start)
}

func TestLoad_YAML(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 8080
indices:
  - {key: sp500, name: "S&P 500", symbol: "^GSPC", weight: 0.6}
  - {key: dow, name: Dow Jones, symbol: "^DJI", weight: 0.4}
data_source:
  provider: rest
  base_url: http://bars.local
storage:
  driver: sqlite
  dir: /var/lib/pulse
schedule:
  timezone: UTC
telegram:
  bot_token: tok
  chat_id: "42"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	require.Len(t, cfg.IndexList(), 2)
	assert.Equal(t, 0.6, cfg.IndexList()[0].Weight)
	assert.Equal(t, "rest", cfg.DataSource.Provider)
	assert.Equal(t, "/var/lib/pulse/runs.db", cfg.Storage.RunsDB)
	assert.True(t, cfg.TelegramEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "config.yaml", "server:\n  port: 8080\nlog:\n  level: debug\n")

	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("HISTORY_START", "2023-06-01")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "2023-06-01", cfg.History.Start)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("DATA_API_KEY")
	writeFile(t, dir, ".env", "DATA_API_KEY=from-dotenv\n")

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.DataSource.APIKey)
	os.Unsetenv("DATA_API_KEY")
}

func TestLoad_BadInput(t *testing.T) {
	dir := isolate(t)

	_, err := Load(writeFile(t, dir, "bad.yaml", "server: [port"))
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("PORT", "http")
	_, err = Load(filepath.Join(dir, "none.yaml"))
	assert.ErrorContains(t, err, "parse PORT")
}

func TestValidate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"too many indices", func(c *Config) {
			c.Indices = append(c.Indices, IndexConfig{Key: "rut", Symbol: "^RUT", Weight: 0.1})
		}, "expected 1 to 3"},
		{"weights off", func(c *Config) { c.Indices[0].Weight = 0.5 }, "invalid index weights"},
		{"duplicate key", func(c *Config) { c.Indices[1].Key = "sp500" }, "duplicate key"},
		{"duplicate symbol", func(c *Config) { c.Indices[1].Symbol = "^GSPC" }, "duplicate symbol"},
		{"missing symbol", func(c *Config) { c.Indices[2].Symbol = "" }, "symbol is required"},
		{"rest without url", func(c *Config) { c.DataSource.Provider = "rest" }, "base_url"},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, "unknown provider"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, "unknown driver"},
		{"bad start", func(c *Config) { c.History.Start = "01/03/2022" }, "history.start"},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "schedule.timezone"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("none.yaml")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
