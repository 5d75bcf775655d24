package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
)

// Fetcher retrieves daily bars for a symbol over an inclusive date range.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error)
	Name() string
}

// Provider names accepted by NewFetcher.
const (
	ProviderYahoo = "yahoo"
	ProviderREST  = "rest"
	ProviderMock  = "mock"
)

// FetcherOptions configures NewFetcher.
type FetcherOptions struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Proxy          string
	Timeout        time.Duration
	RequestsPerSec float64
}

// NewFetcher builds the fetcher for the configured provider.
func NewFetcher(opts FetcherOptions, log zerolog.Logger) (Fetcher, error) {
	switch opts.Provider {
	case ProviderYahoo, "":
		f := NewYahooFetcher(opts.Proxy, opts.Timeout, opts.RequestsPerSec, log)
		if opts.BaseURL != "" {
			f.BaseURL = opts.BaseURL
		}
		return f, nil
	case ProviderREST:
		if opts.BaseURL == "" {
			return nil, errors.New("rest provider needs a base url")
		}
		return NewRESTFetcher(opts.BaseURL, opts.APIKey, opts.Proxy, opts.Timeout, opts.RequestsPerSec), nil
	case ProviderMock:
		return &MockFetcher{Price: 5000}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", opts.Provider)
	}
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// newLimiter allows rps requests per second. rps <= 0 means unlimited.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// normalizeBars puts provider rows into series order: dates truncated to UTC
// days, non-trading days and rows outside [from, to] dropped, ascending, and
// on a repeated date the later row wins.
func normalizeBars(bars []model.PriceBar, from, to time.Time) []model.PriceBar {
	from, to = calendar.Day(from), calendar.Day(to)
	byDate := make(map[time.Time]model.PriceBar, len(bars))
	for _, b := range bars {
		b.Date = calendar.Day(b.Date)
		if !calendar.IsTradingDay(b.Date) {
			continue
		}
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		byDate[b.Date] = b
	}
	out := make([]model.PriceBar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// fillPrices defaults missing open/high/low to the close.
func fillPrices(b *model.PriceBar) {
	if b.Open <= 0 {
		b.Open = b.Close
	}
	if b.High <= 0 {
		b.High = b.Close
	}
	if b.Low <= 0 {
		b.Low = b.Close
	}
}
