package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
)

// RESTFetcher implements Fetcher against a generic bars API:
// GET {base}/api/v1/bars/daily?symbol=&from=&to= returning a JSON array.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration, rps float64) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
		limiter: newLimiter(rps),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape. Timestamp is unix seconds; Date, when
// present, takes precedence.
type restBar struct {
	Date      string  `json:"date"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.PriceBar, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", calendar.Format(from))
	params.Set("to", calendar.Format(to))
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?%s", f.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rows []restBar
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.PriceBar, 0, len(rows))
	for _, r := range rows {
		if r.Close <= 0 {
			continue
		}
		date := time.Unix(r.Timestamp, 0).UTC()
		if r.Date != "" {
			d, err := calendar.ParseDay(r.Date)
			if err != nil {
				return nil, fmt.Errorf("decode bars: bad date %q: %w", r.Date, err)
			}
			date = d
		}
		b := model.PriceBar{Date: date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close}
		if r.Volume > 0 {
			b.Volume = int64(r.Volume)
		}
		fillPrices(&b)
		bars = append(bars, b)
	}
	return normalizeBars(bars, from, to), nil
}
