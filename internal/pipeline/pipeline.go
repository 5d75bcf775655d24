package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/calendar"
	"MarketPulse/internal/collector"
	"MarketPulse/internal/model"
	"MarketPulse/internal/narrative"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/sentiment"
	"MarketPulse/internal/store"
)

// ErrNoMarketData means no tracked index produced a usable series. Nothing
// is persisted in that case.
var ErrNoMarketData = errors.New("no market data available for any index")

// ErrRefreshInProgress is returned when a refresh is requested while one is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Triggers recorded with each run.
const (
	TriggerManual  = "manual"
	TriggerAPI     = "api"
	TriggerCron    = "cron"
	TriggerStartup = "startup"
)

// Report summarizes one refresh run.
type Report struct {
	Snapshot *model.Snapshot
	Points   int
	Failed   map[string]error
	Duration time.Duration
}

// Pipeline runs collect -> snapshot -> history -> persist.
type Pipeline struct {
	Collector    *collector.Collector
	Aggregator   *sentiment.Aggregator
	Store        store.Store
	Recorder     recorder.Recorder
	HistoryStart time.Time
	// Now is the clock; tests replace it.
	Now func() time.Time

	running       sync.Mutex
	reconstructor *sentiment.Reconstructor
	log           zerolog.Logger
}

// New wires a pipeline. rec may be nil.
func New(col *collector.Collector, agg *sentiment.Aggregator, st store.Store, rec recorder.Recorder, historyStart time.Time, log zerolog.Logger) *Pipeline {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Pipeline{
		Collector:     col,
		Aggregator:    agg,
		Store:         st,
		Recorder:      rec,
		HistoryStart:  historyStart,
		Now:           time.Now,
		reconstructor: sentiment.NewReconstructor(agg, narrative.New()),
		log:           log.With().Str("component", "pipeline").Logger(),
	}
}

// Refresh fetches every index, rebuilds both artifacts and saves them.
// Only one refresh runs at a time.
func (p *Pipeline) Refresh(ctx context.Context, trigger string) (*Report, error) {
	if !p.running.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer p.running.Unlock()

	started := p.Now()
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Str("trigger", trigger).Logger()
	log.Info().Msg("refresh started")

	rec := &recorder.RunRecord{RunID: runID, Trigger: trigger, StartedAt: started}
	report, err := p.run(ctx, runID, started, log)
	rec.Duration = p.Now().Sub(started)

	if report != nil {
		report.Duration = rec.Duration
		rec.Failed = errorStrings(report.Failed)
	}
	switch {
	case err != nil:
		rec.Status = recorder.StatusFailed
		rec.Error = err.Error()
		log.Error().Err(err).Dur("elapsed", rec.Duration).Msg("refresh failed")
	default:
		rec.Status = recorder.StatusOK
		if len(report.Failed) > 0 {
			rec.Status = recorder.StatusPartial
		}
		rec.Date = report.Snapshot.Date
		rec.Score = report.Snapshot.Sentiment.Score
		rec.Label = string(report.Snapshot.Sentiment.Label)
		rec.Points = report.Points
		log.Info().
			Str("date", rec.Date).
			Float64("score", rec.Score).
			Str("label", rec.Label).
			Int("points", rec.Points).
			Int("failed", len(report.Failed)).
			Dur("elapsed", rec.Duration).
			Msg("refresh complete")
	}
	if rerr := p.Recorder.RecordRun(rec); rerr != nil {
		log.Error().Err(rerr).Msg("record run")
	}
	return report, err
}

func (p *Pipeline) run(ctx context.Context, runID string, now time.Time, log zerolog.Logger) (*Report, error) {
	indices := p.Aggregator.Indices()
	res := p.Collector.CollectAll(ctx, indices, p.HistoryStart, now)

	series := make(map[string]model.IndexSeries, len(res.Series))
	for k, s := range res.Series {
		if s.Len() == 0 {
			log.Warn().Str("index", k).Msg("empty series, treating index as unavailable")
			continue
		}
		series[k] = s
	}
	report := &Report{Failed: res.Failed}
	if len(series) == 0 {
		return report, fmt.Errorf("%w: %s", ErrNoMarketData, joinFailures(res.Failed))
	}

	snap := BuildSnapshot(p.Aggregator, series, runID, now)
	points, err := p.reconstructor.Reconstruct(series)
	if err != nil {
		return report, fmt.Errorf("reconstruct history: %w", err)
	}

	if err := p.Store.SaveSnapshot(snap); err != nil {
		return report, fmt.Errorf("save snapshot: %w", err)
	}
	if err := p.Store.SaveHistory(points); err != nil {
		return report, fmt.Errorf("save history: %w", err)
	}

	report.Snapshot = snap
	report.Points = len(points)
	return report, nil
}

// BuildSnapshot scores the latest bar of every present index and blends them.
// Date is the most recent last-bar date across the present indices.
func BuildSnapshot(agg *sentiment.Aggregator, series map[string]model.IndexSeries, runID string, now time.Time) *model.Snapshot {
	snap := &model.Snapshot{
		RunID:     runID,
		Timestamp: now.UTC(),
		Indices:   make(map[string]model.IndexQuote),
	}

	inputs := make(map[string]sentiment.IndexInput)
	var latest time.Time
	for _, idx := range agg.Indices() {
		s, ok := series[idx.Key]
		if !ok {
			continue
		}
		last, ok := s.Last()
		if !ok {
			continue
		}
		if last.Date.After(latest) {
			latest = last.Date
		}

		score := sentiment.EvaluateLatest(s)
		inputs[idx.Key] = sentiment.IndexInput{Score: score, Current: last.Close}

		q := model.IndexQuote{Name: idx.Name, Symbol: s.Symbol, Current: last.Close}
		if n := s.Len(); n > 1 {
			prev := s.Bars[n-2].Close
			q.Change = calculator.Round2(last.Close - prev)
			q.ChangePercent = calculator.Round2(calculator.PercentChange(last.Close, prev))
		}
		snap.Indices[idx.Key] = q
	}

	snap.Sentiment = agg.Aggregate(inputs)
	if !latest.IsZero() {
		snap.Date = calendar.Format(latest)
	}
	return snap
}

func errorStrings(errs map[string]error) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for k, err := range errs {
		out[k] = err.Error()
	}
	return out
}

func joinFailures(errs map[string]error) string {
	if len(errs) == 0 {
		return "no series returned"
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, errs[k])
	}
	return strings.Join(parts, "; ")
}
