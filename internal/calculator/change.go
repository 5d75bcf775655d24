package calculator

import "MarketPulse/internal/model"

// PercentChange returns the percent move from previous to current, 0 when previous is 0.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// LookbackChange returns the percent change of bars[asOf] against the bar
// `lookback` positions earlier, or against bar 0 when fewer bars exist.
func LookbackChange(bars []model.PriceBar, asOf, lookback int) float64 {
	if asOf <= 0 || asOf >= len(bars) {
		return 0
	}
	ref := asOf - lookback
	if ref < 0 {
		ref = 0
	}
	return PercentChange(bars[asOf].Close, bars[ref].Close)
}

// DailyChange returns the percent change of bars[asOf] against its predecessor.
func DailyChange(bars []model.PriceBar, asOf int) float64 {
	return LookbackChange(bars, asOf, 1)
}

// windowStart returns the first index of the trailing window of size n ending at asOf.
func windowStart(asOf, n int) int {
	start := asOf - n + 1
	if start < 0 {
		start = 0
	}
	return start
}
