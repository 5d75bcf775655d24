package calculator

import (
	"math"

	"MarketPulse/internal/model"
)

// TrailingMeanVolume averages volume over the window of up to n bars ending at asOf.
// ok is false when the window is empty.
func TrailingMeanVolume(bars []model.PriceBar, asOf, n int) (mean float64, ok bool) {
	if n <= 0 || asOf < 0 || asOf >= len(bars) {
		return 0, false
	}
	start := windowStart(asOf, n)
	var sum float64
	for i := start; i <= asOf; i++ {
		sum += float64(bars[i].Volume)
	}
	return sum / float64(asOf-start+1), true
}

// MeanAbsDailyChange averages |daily % change| for the bars in the window of up
// to n bars ending at asOf. Bar 0 has no predecessor and contributes nothing.
// count is the number of changes averaged.
func MeanAbsDailyChange(bars []model.PriceBar, asOf, n int) (mean float64, count int) {
	if n <= 0 || asOf < 0 || asOf >= len(bars) {
		return 0, 0
	}
	start := windowStart(asOf, n)
	if start == 0 {
		start = 1
	}
	var sum float64
	for i := start; i <= asOf; i++ {
		sum += math.Abs(PercentChange(bars[i].Close, bars[i-1].Close))
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
