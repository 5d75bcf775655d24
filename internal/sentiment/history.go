package sentiment

import (
	"fmt"
	"sort"
	"time"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
)

// Formatter writes the headline and summary for one historical day.
type Formatter interface {
	Format(score float64, changes []model.IndexChange, date time.Time) (headline, summary string)
}

// Reconstructor rebuilds the composite for every past trading day, reading
// each series only up to the day being evaluated.
type Reconstructor struct {
	agg       *Aggregator
	formatter Formatter
}

// NewReconstructor creates a Reconstructor. formatter may be nil.
func NewReconstructor(agg *Aggregator, formatter Formatter) *Reconstructor {
	return &Reconstructor{agg: agg, formatter: formatter}
}

// Reconstruct returns one point per date present in any tracked series, ascending.
// Series keyed by something the aggregator does not track are ignored.
// An invalid series is rejected rather than scored.
func (r *Reconstructor) Reconstruct(series map[string]model.IndexSeries) ([]model.HistoricalPoint, error) {
	indices := r.agg.Indices()

	dateSet := make(map[string]time.Time)
	for _, idx := range indices {
		s, ok := series[idx.Key]
		if !ok {
			continue
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("reconstruct %s: %w", idx.Key, err)
		}
		for _, b := range s.Bars {
			dateSet[calendar.Format(b.Date)] = calendar.Day(b.Date)
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	cursors := make(map[string]int, len(indices))
	points := make([]model.HistoricalPoint, 0, len(dates))

	for _, date := range dates {
		inputs := make(map[string]IndexInput, len(indices))
		closes := make(map[string]float64, len(indices))
		changes := make(map[string]float64, len(indices))
		named := make([]model.IndexChange, 0, len(indices))

		for _, idx := range indices {
			bars := series[idx.Key].Bars
			pos := cursors[idx.Key]
			change := 0.0
			if pos < len(bars) && calendar.Format(bars[pos].Date) == date {
				score := Evaluate(bars, pos)
				inputs[idx.Key] = IndexInput{Score: score, Current: bars[pos].Close}
				closes[idx.Key] = bars[pos].Close
				change = score.Factors.DailyChange
				changes[idx.Key] = calculator.Round2(change)
				cursors[idx.Key] = pos + 1
			}
			named = append(named, model.IndexChange{Name: idx.Name, Percent: change})
		}

		composite := r.agg.Aggregate(inputs)
		day := dateSet[date]
		p := model.HistoricalPoint{
			Date:           date,
			Timestamp:      day,
			Closes:         closes,
			Sentiment:      composite.Score,
			SentimentLabel: composite.Label,
			Changes:        changes,
		}
		if r.formatter != nil {
			p.Headline, p.Summary = r.formatter.Format(composite.Score, named, day)
		}
		points = append(points, p)
	}
	return points, nil
}
