package collector

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

var errNoRows = errors.New("no usable rows")

// YahooFetcher implements Fetcher using the Yahoo Finance chart API, falling
// back to the CSV download endpoint when the chart call fails or is empty.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewYahooFetcher creates a Yahoo fetcher. rps caps the request rate.
func NewYahooFetcher(proxyURL string, timeout time.Duration, rps float64, log zerolog.Logger) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: DefaultYahooBaseURL,
		Client:  newHTTPClient(proxyURL, timeout),
		limiter: newLimiter(rps),
		log:     log.With().Str("fetcher", "yahoo").Logger(),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the chart API. Price arrays
// contain nulls on days without a print.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat reads element i of a nullable column.
func toFloat(col []interface{}, i int) (float64, bool) {
	if i >= len(col) || col[i] == nil {
		return 0, false
	}
	switch n := col[i].(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// FetchDailyBars returns daily bars for symbol between from and to inclusive.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	params := url.Values{}
	params.Set("period1", strconv.FormatInt(calendar.Day(from).Unix(), 10))
	params.Set("period2", strconv.FormatInt(calendar.Day(to).AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "history")

	bars, chartErr := f.fetchChart(ctx, symbol, params)
	if chartErr == nil {
		return normalizeBars(bars, from, to), nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, ctx.Err())
	}
	f.log.Warn().Err(chartErr).Str("symbol", symbol).Msg("chart API failed, trying CSV download")

	bars, csvErr := f.fetchCSV(ctx, symbol, params)
	if csvErr != nil {
		return nil, fmt.Errorf("yahoo fetch %s: chart: %v; csv: %w", symbol, chartErr, csvErr)
	}
	return normalizeBars(bars, from, to), nil
}

func (f *YahooFetcher) get(ctx context.Context, path string, params url.Values, accept string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	u := fmt.Sprintf("%s%s?%s", f.BaseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", accept)
	req.Header.Set("Referer", "https://finance.yahoo.com/")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, params url.Values) ([]model.PriceBar, error) {
	body, err := f.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params, "application/json")
	if err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errNoRows
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c, ok := toFloat(quote.Close, i)
		if !ok || c <= 0 {
			continue // holidays and partial prints
		}
		b := model.PriceBar{Date: time.Unix(ts, 0).UTC(), Close: c}
		b.Open, _ = toFloat(quote.Open, i)
		b.High, _ = toFloat(quote.High, i)
		b.Low, _ = toFloat(quote.Low, i)
		if v, ok := toFloat(quote.Volume, i); ok && v > 0 {
			b.Volume = int64(v)
		}
		fillPrices(&b)
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, errNoRows
	}
	return bars, nil
}

// fetchCSV reads Date,Open,High,Low,Close,Adj Close,Volume rows.
func (f *YahooFetcher) fetchCSV(ctx context.Context, symbol string, params url.Values) ([]model.PriceBar, error) {
	body, err := f.get(ctx, "/v7/finance/download/"+url.PathEscape(symbol), params, "text/csv")
	if err != nil {
		return nil, err
	}
	return parseYahooCSV(bytes.NewReader(body))
}

func parseYahooCSV(r io.Reader) ([]model.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, errNoRows
	}

	bars := make([]model.PriceBar, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 6 {
			continue
		}
		date, err := calendar.ParseDay(strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}
		c := parseCSVFloat(rec[4])
		if c <= 0 {
			continue
		}
		b := model.PriceBar{
			Date:  date,
			Open:  parseCSVFloat(rec[1]),
			High:  parseCSVFloat(rec[2]),
			Low:   parseCSVFloat(rec[3]),
			Close: c,
		}
		if len(rec) > 6 {
			if v := parseCSVFloat(rec[6]); v > 0 {
				b.Volume = int64(v)
			}
		}
		fillPrices(&b)
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, errNoRows
	}
	return bars, nil
}

// parseCSVFloat returns 0 for "null" and other unparseable cells.
func parseCSVFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
