package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/collector"
	"MarketPulse/internal/sentiment"
	"MarketPulse/internal/store"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is set.
const DefaultPath = "configs/config.yaml"

// IndexConfig is one tracked index.
type IndexConfig struct {
	Key    string  `yaml:"key"`
	Name   string  `yaml:"name"`
	Symbol string  `yaml:"symbol"`
	Weight float64 `yaml:"weight"`
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port      int    `yaml:"port"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Indices []IndexConfig `yaml:"indices"`
	History struct {
		Start string `yaml:"start"`
	} `yaml:"history"`
	DataSource struct {
		Provider       string  `yaml:"provider"`
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		RequestsPerSec float64 `yaml:"requests_per_second"`
		TimeoutSec     int     `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	Storage struct {
		Driver     string `yaml:"driver"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
		RunsDB     string `yaml:"runs_db"`
	} `yaml:"storage"`
	Schedule struct {
		Timezone     string `yaml:"timezone"`
		DailyCron    string `yaml:"daily_cron"`
		IntradayCron string `yaml:"intraday_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then .env, then environment variable
// overrides, then fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Existing environment variables win over .env entries.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("HISTORY_START"); v != "" {
		c.History.Start = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if len(c.Indices) == 0 {
		for _, idx := range sentiment.DefaultIndices {
			c.Indices = append(c.Indices, IndexConfig(idx))
		}
	}
	if c.History.Start == "" {
		c.History.Start = "2022-01-03"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = collector.ProviderYahoo
	}
	if c.DataSource.RequestsPerSec == 0 {
		c.DataSource.RequestsPerSec = 2
	}
	if c.DataSource.TimeoutSec == 0 {
		c.DataSource.TimeoutSec = 60
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = store.DriverJSON
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "data"
	}
	if c.Storage.RunsDB == "" {
		c.Storage.RunsDB = filepath.Join(c.Storage.Dir, "runs.db")
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 9 * * *"
	}
	if c.Schedule.IntradayCron == "" {
		c.Schedule.IntradayCron = "0 0 9-16 * * 1-5"
	}
}

// Validate checks that the configuration can drive a refresh.
func (c *Config) Validate() error {
	if n := len(c.Indices); n < 1 || n > 3 {
		return fmt.Errorf("indices: expected 1 to 3, got %d", n)
	}
	symbols := make(map[string]bool, len(c.Indices))
	for _, idx := range c.Indices {
		if idx.Symbol == "" {
			return fmt.Errorf("indices.%s: symbol is required", idx.Key)
		}
		if symbols[idx.Symbol] {
			return fmt.Errorf("indices: duplicate symbol %q", idx.Symbol)
		}
		symbols[idx.Symbol] = true
	}
	if _, err := sentiment.NewAggregator(c.IndexList()); err != nil {
		return fmt.Errorf("indices: %w", err)
	}

	switch c.DataSource.Provider {
	case collector.ProviderYahoo, collector.ProviderMock:
	case collector.ProviderREST:
		if c.DataSource.BaseURL == "" {
			return errors.New("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider: unknown provider %q", c.DataSource.Provider)
	}
	if c.DataSource.RequestsPerSec < 0 {
		return errors.New("data_source.requests_per_second must not be negative")
	}
	if c.DataSource.TimeoutSec < 0 {
		return errors.New("data_source.timeout_seconds must not be negative")
	}

	switch c.Storage.Driver {
	case store.DriverJSON, store.DriverSQLite, store.DriverMemory:
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}

	if _, err := c.HistoryStart(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// IndexList converts the configured indices for the aggregator.
func (c *Config) IndexList() []sentiment.Index {
	out := make([]sentiment.Index, len(c.Indices))
	for i, idx := range c.Indices {
		out[i] = sentiment.Index(idx)
	}
	return out
}

// HistoryStart parses the backfill start date.
func (c *Config) HistoryStart() (time.Time, error) {
	d, err := calendar.ParseDay(c.History.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("history.start: %w", err)
	}
	return d, nil
}

// Location loads the scheduler timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

// FetchTimeout is the per-fetch deadline.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSec) * time.Second
}

// TelegramEnabled reports whether snapshot pushes are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
