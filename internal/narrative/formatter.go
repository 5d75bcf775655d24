package narrative

import (
	"fmt"
	"math"
	"strings"
	"time"

	"MarketPulse/internal/model"
)

// Strength buckets the magnitude of a composite score.
type Strength string

const (
	StrengthMild     Strength = "mild"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

const (
	flatThreshold   = 0.3
	leaderThreshold = 1.0
)

// Formatter writes the headline and summary attached to each historical day.
type Formatter struct{}

// New returns a Formatter.
func New() *Formatter { return &Formatter{} }

// Format returns the headline and summary for a day.
func (f *Formatter) Format(score float64, changes []model.IndexChange, date time.Time) (string, string) {
	return Headline(changes), Summary(score, changes)
}

// StrengthOf classifies |score|: above 50 is strong, above 20 moderate, otherwise mild.
func StrengthOf(score float64) Strength {
	abs := math.Abs(score)
	switch {
	case abs > 50:
		return StrengthStrong
	case abs > 20:
		return StrengthModerate
	default:
		return StrengthMild
	}
}

// AverageChange is the plain mean of the per-index changes.
func AverageChange(changes []model.IndexChange) float64 {
	if len(changes) == 0 {
		return 0
	}
	var sum float64
	for _, c := range changes {
		sum += c.Percent
	}
	return sum / float64(len(changes))
}

// Headline describes the day by the average index move.
func Headline(changes []model.IndexChange) string {
	avg := AverageChange(changes)
	if math.Abs(avg) < flatThreshold {
		return "Markets Trade Flat Amid Mixed Signals"
	}
	switch {
	case avg > 1.5:
		return "Major Indices Surge on Strong Market Sentiment"
	case avg > 0.5:
		return "Markets Advance on Positive Trading Day"
	case avg > 0:
		return "Markets Edge Higher in Cautious Trading"
	case avg > -0.5:
		return "Markets Dip Slightly in Quiet Session"
	case avg > -1.5:
		return "Markets Decline on Negative Sentiment"
	default:
		return "Major Indices Fall Sharply Amid Concerns"
	}
}

// Summary combines the sentiment direction with the market direction and,
// on days with a move above 1%, names the best performer.
func Summary(score float64, changes []model.IndexChange) string {
	positive := score > 0
	advancing := AverageChange(changes) > 0
	strength := StrengthOf(score)

	var text string
	switch {
	case positive && advancing:
		switch strength {
		case StrengthStrong:
			text = "Strong bullish momentum with all major indices advancing. Market sentiment reflects significant optimism."
		case StrengthModerate:
			text = "Positive market sentiment with gains across major indices. Investors show cautious optimism."
		default:
			text = "Mildly positive sentiment with modest gains. Market shows steady upward trend."
		}
	case positive:
		text = "Mixed signals: positive sentiment despite mixed index performance. Market shows resilience."
	case !advancing:
		switch strength {
		case StrengthStrong:
			text = "Strong bearish sentiment with declines across major indices. Market shows significant concern."
		case StrengthModerate:
			text = "Negative sentiment with losses in major indices. Investors show caution."
		default:
			text = "Mildly negative sentiment with modest declines. Market shows slight weakness."
		}
	default:
		text = "Mixed market signals: negative sentiment despite some index gains. Uncertainty prevails."
	}

	best, worst, ok := extremes(changes)
	if ok && (math.Abs(best.Percent) > leaderThreshold || math.Abs(worst.Percent) > leaderThreshold) {
		sign := ""
		if best.Percent > 0 {
			sign = "+"
		}
		text += fmt.Sprintf(" %s led with %s%.2f%% change.", best.Name, sign, best.Percent)
	}
	return strings.TrimSpace(text)
}

// extremes returns the best and worst performers. Ties go to the earlier index.
func extremes(changes []model.IndexChange) (best, worst model.IndexChange, ok bool) {
	if len(changes) == 0 {
		return best, worst, false
	}
	best, worst = changes[0], changes[0]
	for _, c := range changes[1:] {
		if c.Percent > best.Percent {
			best = c
		}
		if c.Percent < worst.Percent {
			worst = c
		}
	}
	return best, worst, true
}
