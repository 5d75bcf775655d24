package sentiment

import (
	"errors"
	"fmt"
	"math"

	"MarketPulse/internal/calculator"
	"MarketPulse/internal/model"
)

// Index describes one tracked index and its nominal weight in the composite.
type Index struct {
	Key    string
	Name   string
	Symbol string
	Weight float64
}

// DefaultIndices are the primary, secondary and tertiary indices.
var DefaultIndices = []Index{
	{Key: "sp500", Name: "S&P 500", Symbol: "^GSPC", Weight: 0.40},
	{Key: "nasdaq", Name: "NASDAQ", Symbol: "^IXIC", Weight: 0.35},
	{Key: "dow", Name: "Dow Jones", Symbol: "^DJI", Weight: 0.25},
}

const weightTolerance = 1e-9

var ErrInvalidWeights = errors.New("invalid index weights")

// IndexInput is one index's contribution for a single evaluation day.
type IndexInput struct {
	Score   model.SentimentScore
	Current float64
}

// Aggregator blends per-index scores with fixed nominal weights.
type Aggregator struct {
	indices []Index
}

// NewAggregator checks that keys are unique and weights are positive and sum to 1.
func NewAggregator(indices []Index) (*Aggregator, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: no indices", ErrInvalidWeights)
	}
	seen := make(map[string]bool, len(indices))
	var sum float64
	for _, idx := range indices {
		if idx.Key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidWeights)
		}
		if seen[idx.Key] {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidWeights, idx.Key)
		}
		seen[idx.Key] = true
		if idx.Weight <= 0 {
			return nil, fmt.Errorf("%w: %s weight %.4f must be positive", ErrInvalidWeights, idx.Key, idx.Weight)
		}
		sum += idx.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %.6f, want 1", ErrInvalidWeights, sum)
	}
	return &Aggregator{indices: append([]Index(nil), indices...)}, nil
}

// Indices returns the configured indices in weight order.
func (a *Aggregator) Indices() []Index {
	return append([]Index(nil), a.indices...)
}

// Weights renormalizes the nominal weights over the present keys.
// Unknown keys are ignored; the result is empty when nothing known is present.
func (a *Aggregator) Weights(present map[string]bool) map[string]float64 {
	var total float64
	for _, idx := range a.indices {
		if present[idx.Key] {
			total += idx.Weight
		}
	}
	out := make(map[string]float64)
	if total == 0 {
		return out
	}
	for _, idx := range a.indices {
		if present[idx.Key] {
			out[idx.Key] = idx.Weight / total
		}
	}
	return out
}

// Aggregate blends the present indices. Absent indices drop out and the
// remaining weights are renormalized; with none present the result is a
// neutral zero score with an empty per-index map.
func (a *Aggregator) Aggregate(inputs map[string]IndexInput) model.CompositeSentiment {
	out := model.CompositeSentiment{
		Label:    model.LabelNeutral,
		PerIndex: make(map[string]model.IndexSentiment),
	}

	present := make(map[string]bool, len(inputs))
	for k := range inputs {
		present[k] = true
	}
	weights := a.Weights(present)
	if len(weights) == 0 {
		return out
	}

	var blended float64
	for _, idx := range a.indices {
		w, ok := weights[idx.Key]
		if !ok {
			continue
		}
		in := inputs[idx.Key]
		blended += in.Score.Score * w
		out.PerIndex[idx.Key] = model.IndexSentiment{
			Score:       in.Score.Score,
			Label:       in.Score.Label,
			Current:     in.Current,
			DailyChange: in.Score.Factors.DailyChange,
			Weight:      w,
		}
	}

	out.Score = calculator.Round2(calculator.Clamp(blended, -100, 100))
	out.Label = LabelFor(out.Score)
	return out
}
