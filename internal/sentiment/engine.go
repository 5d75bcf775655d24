package sentiment

import (
	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

// LabelFor maps a score to its label. Comparisons are strict on both sides,
// so exactly 50 is Bullish while exactly -50 is Very Bearish.
func LabelFor(score float64) model.Label {
	switch {
	case score > 50:
		return model.LabelVeryBullish
	case score > 20:
		return model.LabelBullish
	case score > -20:
		return model.LabelNeutral
	case score > -50:
		return model.LabelBearish
	default:
		return model.LabelVeryBearish
	}
}

// Blend combines the five sub-scores of f into a single bounded score.
func Blend(f model.FactorSet) model.SentimentScore {
	subs := SubScores(f)
	var total float64
	for _, s := range subs {
		total += s.Weighted
	}
	score := calculator.Round2(calculator.Clamp(total, -100, 100))
	return model.SentimentScore{
		Score:     score,
		Label:     LabelFor(score),
		Factors:   f,
		SubScores: subs,
	}
}

// Neutral is the score of an index with no data.
func Neutral() model.SentimentScore {
	return model.SentimentScore{Score: 0, Label: model.LabelNeutral}
}

// Evaluate scores bars[asOf] using only bars up to and including asOf.
func Evaluate(bars []model.PriceBar, asOf int) model.SentimentScore {
	if len(bars) == 0 || asOf < 0 || asOf >= len(bars) {
		return Neutral()
	}
	return Blend(ComputeFactors(bars, asOf))
}

// EvaluateLatest scores the last bar of the series.
func EvaluateLatest(s model.IndexSeries) model.SentimentScore {
	return Evaluate(s.Bars, len(s.Bars)-1)
}
