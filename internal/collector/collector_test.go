package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
	"MarketPulse/internal/sentiment"
)

func day(s string) time.Time {
	d, err := calendar.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// 2024-03-04 is a Monday.
var (
	mon = day("2024-03-04")
	tue = day("2024-03-05")
	wed = day("2024-03-06")
	sat = day("2024-03-09")
	fri = day("2024-03-08")
)

func TestNormalizeBars(t *testing.T) {
	in := []model.PriceBar{
		{Date: wed.Add(14 * time.Hour), Close: 103},
		{Date: mon, Close: 101},
		{Date: sat, Close: 999},
		{Date: tue, Close: 102},
		{Date: wed, Close: 104},
	}
	out := normalizeBars(in, mon, fri)

	require.Len(t, out, 3)
	assert.Equal(t, mon, out[0].Date)
	assert.Equal(t, tue, out[1].Date)
	assert.Equal(t, wed, out[2].Date)
	assert.Equal(t, 104.0, out[2].Close, "later duplicate wins")
}

func TestNormalizeBars_RangeFilter(t *testing.T) {
	in := []model.PriceBar{{Date: mon, Close: 1}, {Date: tue, Close: 2}, {Date: wed, Close: 3}}
	out := normalizeBars(in, tue, tue)
	require.Len(t, out, 1)
	assert.Equal(t, tue, out[0].Date)
}

const chartBody = `{"chart":{"result":[{"timestamp":[%d,%d,%d,%d],
"indicators":{"quote":[{"open":[null,101,102,103],"high":[100,null,103,104],
"low":[99,100,null,102],"close":[100,null,102.5,104],"volume":[1000,2000,null,4000]}]}}],"error":null}}`

func TestYahooFetcher_Chart(t *testing.T) {
	body := fmt.Sprintf(chartBody,
		mon.Add(14*time.Hour+30*time.Minute).Unix(),
		tue.Add(14*time.Hour+30*time.Minute).Unix(),
		wed.Add(14*time.Hour+30*time.Minute).Unix(),
		sat.Add(14*time.Hour+30*time.Minute).Unix(),
	)
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, 0, zerolog.Nop())
	f.BaseURL = srv.URL

	bars, err := f.FetchDailyBars(context.Background(), "^GSPC", mon, fri)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, bars, 2, "null close and weekend rows are dropped")

	assert.Equal(t, mon, bars[0].Date)
	assert.Equal(t, 100.0, bars[0].Open, "missing open defaults to close")
	assert.Equal(t, int64(1000), bars[0].Volume)

	assert.Equal(t, wed, bars[1].Date)
	assert.Equal(t, 102.5, bars[1].Close)
	assert.Equal(t, 102.5, bars[1].Low)
	assert.Equal(t, int64(0), bars[1].Volume)
}

func TestYahooFetcher_FallsBackToCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v8/") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte("Date,Open,High,Low,Close,Adj Close,Volume\n" +
			"2024-03-04,null,null,null,5100.5,5100.5,3000000\n" +
			"2024-03-05,5101,5120,5090,5110,5110,3100000\n" +
			"2024-03-06,5110,5130,5100,null,null,0\n" +
			"2024-03-09,1,1,1,1,1,1\n"))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, 0, zerolog.Nop())
	f.BaseURL = srv.URL

	bars, err := f.FetchDailyBars(context.Background(), "^DJI", mon, fri)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 5100.5, bars[0].Open)
	assert.Equal(t, int64(3100000), bars[1].Volume)
}

func TestYahooFetcher_BothPathsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 5*time.Second, 0, zerolog.Nop())
	f.BaseURL = srv.URL

	_, err := f.FetchDailyBars(context.Background(), "^IXIC", mon, fri)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}

func TestRESTFetcher(t *testing.T) {
	var gotAuth, gotSymbol, gotFrom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSymbol = r.URL.Query().Get("symbol")
		gotFrom = r.URL.Query().Get("from")
		fmt.Fprintf(w, `[{"date":"2024-03-05","open":2,"high":3,"low":1,"close":2.5,"volume":10},
			{"timestamp":%d,"close":1.5,"volume":5},
			{"date":"2024-03-06","close":0}]`, mon.Unix())
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", 5*time.Second, 0)
	bars, err := f.FetchDailyBars(context.Background(), "^GSPC", mon, fri)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "^GSPC", gotSymbol)
	assert.Equal(t, "2024-03-04", gotFrom)
	require.Len(t, bars, 2)
	assert.Equal(t, mon, bars[0].Date)
	assert.Equal(t, 1.5, bars[0].High)
	assert.Equal(t, tue, bars[1].Date)
}

func TestRESTFetcher_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "", "", 5*time.Second, 0)
	_, err := f.FetchDailyBars(context.Background(), "^GSPC", mon, fri)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestCollectAll_PartialFailure(t *testing.T) {
	bad := []model.PriceBar{
		{Date: tue, Close: 1},
		{Date: mon, Close: 1},
	}
	mock := &MockFetcher{
		Price: 4000,
		Bars:  map[string][]model.PriceBar{"^DJI": bad},
		Errs:  map[string]error{"^IXIC": errors.New("provider down")},
	}
	c := NewCollector(mock, time.Second, zerolog.Nop())

	res := c.CollectAll(context.Background(), sentiment.DefaultIndices, mon, fri)

	require.Contains(t, res.Series, "sp500")
	assert.Equal(t, 5, res.Series["sp500"].Len())
	assert.Equal(t, "^GSPC", res.Series["sp500"].Symbol)

	require.Contains(t, res.Failed, "nasdaq")
	require.Contains(t, res.Failed, "dow")
	assert.ErrorIs(t, res.Failed["dow"], model.ErrUnsortedBars)
	assert.Len(t, res.Series, 1)

	for _, idx := range sentiment.DefaultIndices {
		assert.Equal(t, 1, mock.Calls(idx.Symbol))
	}
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(&MockFetcher{Price: 100}, 0, zerolog.Nop())
	_, err := c.Collect(ctx, "^GSPC", mon, fri)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateMockBars_Valid(t *testing.T) {
	bars := generateMockBars(5000, day("2024-01-01"), day("2024-03-29"))
	_, err := model.NewIndexSeries("^GSPC", bars)
	require.NoError(t, err)
	assert.Len(t, bars, len(calendar.TradingDays(day("2024-01-01"), day("2024-03-29"))))
}

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher(FetcherOptions{Provider: ProviderYahoo, BaseURL: "http://local"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "yahoo", f.Name())
	assert.Equal(t, "http://local", f.(*YahooFetcher).BaseURL)

	f, err = NewFetcher(FetcherOptions{Provider: ProviderREST, BaseURL: "http://local"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "rest", f.Name())

	f, err = NewFetcher(FetcherOptions{Provider: ProviderMock}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mock", f.Name())

	_, err = NewFetcher(FetcherOptions{Provider: ProviderREST}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewFetcher(FetcherOptions{Provider: "bloomberg"}, zerolog.Nop())
	assert.Error(t, err)
}
