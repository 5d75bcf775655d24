package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/logger"
	"MarketPulse/internal/pipeline"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/sentiment"
	"MarketPulse/internal/store"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	cli      zerolog.Logger
	store    store.Store
	recorder recorder.Recorder
	pipeline *pipeline.Pipeline
}

func bootstrap() (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Dir, cfg.Storage.SQLitePath, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rec := openRecorder(cfg, log)

	fetcher, err := collector.NewFetcher(collector.FetcherOptions{
		Provider:       cfg.DataSource.Provider,
		BaseURL:        cfg.DataSource.BaseURL,
		APIKey:         cfg.DataSource.APIKey,
		Proxy:          cfg.Proxy,
		Timeout:        cfg.FetchTimeout(),
		RequestsPerSec: cfg.DataSource.RequestsPerSec,
	}, log)
	if err != nil {
		st.Close()
		rec.Close()
		return nil, fmt.Errorf("init fetcher: %w", err)
	}
	cliLog := logger.Component(log, "cli")
	cliLog.Info().Str("provider", fetcher.Name()).Str("store", cfg.Storage.Driver).Msg("data source ready")

	agg, err := sentiment.NewAggregator(cfg.IndexList())
	if err != nil {
		st.Close()
		rec.Close()
		return nil, fmt.Errorf("init aggregator: %w", err)
	}
	start, _ := cfg.HistoryStart()

	col := collector.NewCollector(fetcher, cfg.FetchTimeout(), log)
	return &app{
		cfg:      cfg,
		log:      log,
		cli:      cliLog,
		store:    st,
		recorder: rec,
		pipeline: pipeline.New(col, agg, st, rec, start, log),
	}, nil
}

// openRecorder falls back to the noop recorder when the run log cannot be opened.
func openRecorder(cfg *config.Config, log zerolog.Logger) recorder.Recorder {
	if cfg.Storage.Driver == store.DriverMemory || cfg.Storage.RunsDB == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.RunsDB), 0o755); err != nil {
		log.Warn().Err(err).Msg("create run log dir failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Storage.RunsDB, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	return rec
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.cli.Warn().Err(err).Msg("close recorder")
	}
	if err := a.store.Close(); err != nil {
		a.cli.Warn().Err(err).Msg("close store")
	}
}
