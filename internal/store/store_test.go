package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/model"
)

func sampleSnapshot(score float64) *model.Snapshot {
	return &model.Snapshot{
		RunID:     "run-1",
		Timestamp: time.Date(2024, 3, 8, 21, 5, 0, 123_000_000, time.UTC),
		Date:      "2024-03-08",
		Sentiment: model.CompositeSentiment{
			Score: score,
			Label: model.LabelBullish,
			PerIndex: map[string]model.IndexSentiment{
				"sp500": {Score: 30.5, Label: model.LabelBullish, Current: 5123.69, DailyChange: 0.65, Weight: 0.4 / 0.65},
				"dow":   {Score: 12, Label: model.LabelNeutral, Current: 38722.69, DailyChange: -0.18, Weight: 0.25 / 0.65},
			},
		},
		Indices: map[string]model.IndexQuote{
			"sp500": {Name: "S&P 500", Symbol: "^GSPC", Current: 5123.69, Change: 33.2, ChangePercent: 0.65},
			"dow":   {Name: "Dow Jones", Symbol: "^DJI", Current: 38722.69, Change: -68.66, ChangePercent: -0.18},
		},
	}
}

func samplePoints() []model.HistoricalPoint {
	return []model.HistoricalPoint{
		{
			Date:           "2024-03-07",
			Timestamp:      time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
			Closes:         map[string]float64{"sp500": 5157.36, "nasdaq": 16273.38},
			Sentiment:      21.4,
			SentimentLabel: model.LabelBullish,
			Changes:        map[string]float64{"sp500": 1.03, "nasdaq": 1.51},
			Headline:       "Markets Advance on Positive Trading Day",
			Summary:        "Positive market sentiment with gains across major indices.",
		},
		{
			Date:           "2024-03-08",
			Timestamp:      time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
			Closes:         map[string]float64{"sp500": 5123.69},
			Sentiment:      -3.1,
			SentimentLabel: model.LabelNeutral,
			Changes:        map[string]float64{"sp500": -0.65},
			Headline:       "Markets Dip Slightly in Quiet Session",
			Summary:        "Mildly negative sentiment.",
		},
	}
}

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	js, err := NewJSONStore(filepath.Join(dir, "json"), zerolog.Nop())
	require.NoError(t, err)
	sq, err := NewSQLiteStore(filepath.Join(dir, "pulse.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		DriverJSON:   js,
		DriverSQLite: sq,
		DriverMemory: NewMemoryStore(),
	}
}

func TestStores_NotFoundBeforeFirstSave(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.LoadSnapshot()
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.LoadHistory()
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStores_SnapshotRoundTrip(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveSnapshot(sampleSnapshot(20.5)))
			second := sampleSnapshot(25.75)
			second.RunID = "run-2"
			require.NoError(t, s.SaveSnapshot(second))

			got, err := s.LoadSnapshot()
			require.NoError(t, err)
			assert.Equal(t, "run-2", got.RunID)
			assert.True(t, second.Timestamp.Equal(got.Timestamp))
			assert.Equal(t, second.Date, got.Date)
			assert.Equal(t, second.Sentiment.Score, got.Sentiment.Score)
			assert.Equal(t, second.Sentiment.Label, got.Sentiment.Label)
			assert.Equal(t, second.Indices, got.Indices)
			assert.Equal(t, second.Sentiment.PerIndex, got.Sentiment.PerIndex)
		})
	}
}

func TestStores_HistoryReplacedWhole(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			points := samplePoints()
			require.NoError(t, s.SaveHistory(points))

			got, err := s.LoadHistory()
			require.NoError(t, err)
			require.Len(t, got, 2)
			for i := range points {
				assert.Equal(t, points[i].Date, got[i].Date)
				assert.True(t, points[i].Timestamp.Equal(got[i].Timestamp))
				assert.Equal(t, points[i].Closes, got[i].Closes)
				assert.Equal(t, points[i].Changes, got[i].Changes)
				assert.Equal(t, points[i].Sentiment, got[i].Sentiment)
				assert.Equal(t, points[i].SentimentLabel, got[i].SentimentLabel)
				assert.Equal(t, points[i].Headline, got[i].Headline)
				assert.Equal(t, points[i].Summary, got[i].Summary)
			}

			require.NoError(t, s.SaveHistory(points[:1]))
			got, err = s.LoadHistory()
			require.NoError(t, err)
			assert.Len(t, got, 1)

			require.NoError(t, s.SaveHistory(nil))
			got, err = s.LoadHistory()
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestJSONStore_FileLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.SaveSnapshot(sampleSnapshot(20)))
	require.NoError(t, s.SaveHistory(samplePoints()))

	data, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"runId": "run-1"`)
	assert.Contains(t, string(data), `"changePercent": 0.65`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestJSONStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, HistoryFile), []byte("{nope"), 0o644))

	_, err = s.LoadHistory()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(DriverSQLite, dir, "", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = os.Stat(filepath.Join(dir, "marketpulse.db"))
	assert.NoError(t, err)

	s, err = Open("", dir, "", zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	_, err = Open("postgres", dir, "", zerolog.Nop())
	assert.Error(t, err)
}
