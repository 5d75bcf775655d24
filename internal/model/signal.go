package model

// Label is the five-bucket classification of a score.
type Label string

const (
	LabelVeryBearish Label = "Very Bearish"
	LabelBearish     Label = "Bearish"
	LabelNeutral     Label = "Neutral"
	LabelBullish     Label = "Bullish"
	LabelVeryBullish Label = "Very Bullish"
)

// FactorSet holds the raw factor values for one index on one day.
// DailyChange, WeeklyTrend, MonthlyTrend and Volatility are percentages.
type FactorSet struct {
	DailyChange  float64 `json:"dailyChange"`
	WeeklyTrend  float64 `json:"weeklyTrend"`
	MonthlyTrend float64 `json:"monthlyTrend"`
	VolumeRatio  float64 `json:"volumeRatio"`
	Volatility   float64 `json:"volatility"`
	// Samples is the number of daily changes behind Volatility.
	Samples int `json:"samples"`
}

// FactorScore is one factor's bounded sub-score and its weighted contribution.
type FactorScore struct {
	Name     string  `json:"name"`
	Raw      float64 `json:"raw"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// SentimentScore is the blended score of a single index.
type SentimentScore struct {
	Score     float64       `json:"score"`
	Label     Label         `json:"label"`
	Factors   FactorSet     `json:"factors"`
	SubScores []FactorScore `json:"subScores,omitempty"`
}

// IndexSentiment is the per-index entry carried through a composite.
type IndexSentiment struct {
	Score       float64 `json:"score"`
	Label       Label   `json:"label"`
	Current     float64 `json:"current"`
	DailyChange float64 `json:"change"`
	Weight      float64 `json:"weight"`
}

// CompositeSentiment is the weighted blend of the available indices.
type CompositeSentiment struct {
	Score    float64                   `json:"score"`
	Label    Label                     `json:"label"`
	PerIndex map[string]IndexSentiment `json:"indices"`
}

// Empty reports whether no index contributed.
func (c CompositeSentiment) Empty() bool { return len(c.PerIndex) == 0 }
