package model

import "time"

// IndexQuote is the display block for one index in the current snapshot.
type IndexQuote struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Snapshot is the current-day artifact.
type Snapshot struct {
	RunID     string                `json:"runId"`
	Timestamp time.Time             `json:"timestamp"`
	Date      string                `json:"date"`
	Sentiment CompositeSentiment    `json:"sentiment"`
	Indices   map[string]IndexQuote `json:"indices"`
}

// HistoricalPoint is one trading day of the backfilled series.
type HistoricalPoint struct {
	Date           string             `json:"date"`
	Timestamp      time.Time          `json:"timestamp"`
	Closes         map[string]float64 `json:"closes"`
	Sentiment      float64            `json:"sentiment"`
	SentimentLabel Label              `json:"sentimentLabel"`
	Changes        map[string]float64 `json:"changes"`
	Headline       string             `json:"headline"`
	Summary        string             `json:"summary"`
}

// IndexChange names one index's daily percent change for text formatting.
type IndexChange struct {
	Name    string
	Percent float64
}
