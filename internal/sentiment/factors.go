package sentiment

import (
	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

// Factor weights. They sum to 1.
const (
	WeightDaily      = 0.30
	WeightWeekly     = 0.25
	WeightMonthly    = 0.20
	WeightVolume     = 0.15
	WeightVolatility = 0.10
)

const (
	weeklyLookback  = 5
	monthlyLookback = 20
	trailingWindow  = 20
)

// ComputeFactors derives the raw factors for bars[asOf]. Only bars[0..asOf] are read.
func ComputeFactors(bars []model.PriceBar, asOf int) model.FactorSet {
	if asOf < 0 || asOf >= len(bars) {
		return model.FactorSet{}
	}
	f := model.FactorSet{
		DailyChange:  calculator.DailyChange(bars, asOf),
		WeeklyTrend:  calculator.LookbackChange(bars, asOf, weeklyLookback),
		MonthlyTrend: calculator.LookbackChange(bars, asOf, monthlyLookback),
		VolumeRatio:  1,
	}
	if avg, ok := calculator.TrailingMeanVolume(bars, asOf, trailingWindow); ok && avg > 0 {
		f.VolumeRatio = float64(bars[asOf].Volume) / avg
	}
	f.Volatility, f.Samples = calculator.MeanAbsDailyChange(bars, asOf, trailingWindow)
	return f
}

// SubScores turns raw factors into the five bounded, weighted sub-scores.
func SubScores(f model.FactorSet) []model.FactorScore {
	return []model.FactorScore{
		scoreDailyChange(f),
		scoreWeeklyTrend(f),
		scoreMonthlyTrend(f),
		scoreVolume(f),
		scoreVolatility(f),
	}
}

func factorScore(name string, raw, score, weight float64) model.FactorScore {
	return model.FactorScore{
		Name:     name,
		Raw:      raw,
		Score:    score,
		Weight:   weight,
		Weighted: score * weight,
	}
}

// scoreDailyChange: 1% move = 10 points, bounded to ±100.
func scoreDailyChange(f model.FactorSet) model.FactorScore {
	return factorScore("dailyChange", f.DailyChange,
		calculator.Clamp(f.DailyChange*10, -100, 100), WeightDaily)
}

// scoreWeeklyTrend: 1% over five sessions = 5 points, bounded to ±100.
func scoreWeeklyTrend(f model.FactorSet) model.FactorScore {
	return factorScore("weeklyTrend", f.WeeklyTrend,
		calculator.Clamp(f.WeeklyTrend*5, -100, 100), WeightWeekly)
}

// scoreMonthlyTrend: 1% over twenty sessions = 3 points, bounded to ±100.
func scoreMonthlyTrend(f model.FactorSet) model.FactorScore {
	return factorScore("monthlyTrend", f.MonthlyTrend,
		calculator.Clamp(f.MonthlyTrend*3, -100, 100), WeightMonthly)
}

// scoreVolume: volume at the trailing average scores 0, bounded to ±50.
func scoreVolume(f model.FactorSet) model.FactorScore {
	return factorScore("volumeRatio", f.VolumeRatio,
		calculator.Clamp((f.VolumeRatio-1)*100, -50, 50), WeightVolume)
}

// scoreVolatility rewards calm markets: 0% average move = 50, 5% = 0, bounded to ±50.
// With no observable daily change the factor is neutral.
func scoreVolatility(f model.FactorSet) model.FactorScore {
	score := 0.0
	if f.Samples > 0 {
		score = calculator.Clamp(50-f.Volatility*10, -50, 50)
	}
	return factorScore("volatility", f.Volatility, score, WeightVolatility)
}
