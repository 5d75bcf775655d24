package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
	"MarketPulse/internal/sentiment"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	// Price seeds generated bars for symbols without explicit data.
	Price float64
	Bars  map[string][]model.PriceBar
	Errs  map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, from, to), nil
}

// Calls reports how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// generateMockBars produces one bar per trading day with a gentle saw-tooth drift.
func generateMockBars(basePrice float64, from, to time.Time) []model.PriceBar {
	if basePrice <= 0 {
		basePrice = 100
	}
	days := calendar.TradingDays(from, to)
	bars := make([]model.PriceBar, len(days))
	for i, d := range days {
		p := basePrice * (1 + float64(i%20-10)*0.001)
		bars[i] = model.PriceBar{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1_000_000 + int64(i%5)*100_000,
		}
	}
	return bars
}

// Result holds the series that were retrieved and the errors for the rest,
// both keyed by index key.
type Result struct {
	Series map[string]model.IndexSeries
	Failed map[string]error
}

// Collector fetches every tracked index concurrently.
type Collector struct {
	Fetcher Fetcher
	Timeout time.Duration
	log     zerolog.Logger
}

// NewCollector creates a new Collector. timeout bounds each fetch; zero means none.
func NewCollector(fetcher Fetcher, timeout time.Duration, log zerolog.Logger) *Collector {
	return &Collector{
		Fetcher: fetcher,
		Timeout: timeout,
		log:     log.With().Str("component", "collector").Str("provider", fetcher.Name()).Logger(),
	}
}

// Collect fetches and validates one symbol.
func (c *Collector) Collect(ctx context.Context, symbol string, from, to time.Time) (model.IndexSeries, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, from, to)
	if err != nil {
		return model.IndexSeries{}, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	series, err := model.NewIndexSeries(symbol, bars)
	if err != nil {
		return model.IndexSeries{}, fmt.Errorf("validate %s: %w", symbol, err)
	}
	return series, nil
}

// CollectAll fetches each index in its own goroutine. A failing index is
// logged and reported in Result.Failed; the others are unaffected.
func (c *Collector) CollectAll(ctx context.Context, indices []sentiment.Index, from, to time.Time) Result {
	res := Result{
		Series: make(map[string]model.IndexSeries, len(indices)),
		Failed: make(map[string]error),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, idx := range indices {
		wg.Add(1)
		go func(idx sentiment.Index) {
			defer wg.Done()
			start := time.Now()
			series, err := c.Collect(ctx, idx.Symbol, from, to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[idx.Key] = err
				c.log.Warn().Err(err).Str("index", idx.Key).Str("symbol", idx.Symbol).Msg("index unavailable")
				return
			}
			res.Series[idx.Key] = series
			c.log.Debug().
				Str("index", idx.Key).
				Int("bars", series.Len()).
				Dur("elapsed", time.Since(start)).
				Msg("index fetched")
		}(idx)
	}
	wg.Wait()
	return res
}
