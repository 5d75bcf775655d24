package sentiment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/model"
)

func scored(score float64, change float64) IndexInput {
	return IndexInput{
		Score: model.SentimentScore{
			Score:   score,
			Label:   LabelFor(score),
			Factors: model.FactorSet{DailyChange: change, VolumeRatio: 1},
		},
		Current: 100,
	}
}

func defaultAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(DefaultIndices)
	require.NoError(t, err)
	return agg
}

func TestAggregate_AllEqual(t *testing.T) {
	agg := defaultAggregator(t)
	c := agg.Aggregate(map[string]IndexInput{
		"sp500":  scored(50, 1),
		"nasdaq": scored(50, 1),
		"dow":    scored(50, 1),
	})
	assert.Equal(t, 50.0, c.Score)
	assert.Equal(t, model.LabelBullish, c.Label)
	assert.Len(t, c.PerIndex, 3)
}

func TestAggregate_OnlyTertiaryPresent(t *testing.T) {
	agg := defaultAggregator(t)
	c := agg.Aggregate(map[string]IndexInput{"dow": scored(80, 2.5)})

	assert.Equal(t, 80.0, c.Score)
	assert.Equal(t, model.LabelVeryBullish, c.Label)
	require.Contains(t, c.PerIndex, "dow")
	assert.InDelta(t, 1.0, c.PerIndex["dow"].Weight, 1e-12)
	assert.Equal(t, 2.5, c.PerIndex["dow"].DailyChange)
}

func TestAggregate_NothingPresent(t *testing.T) {
	agg := defaultAggregator(t)
	c := agg.Aggregate(nil)

	assert.Equal(t, 0.0, c.Score)
	assert.Equal(t, model.LabelNeutral, c.Label)
	assert.NotNil(t, c.PerIndex)
	assert.Empty(t, c.PerIndex)
	assert.True(t, c.Empty())
}

func TestAggregate_MissingIndexIsNotZero(t *testing.T) {
	agg := defaultAggregator(t)

	// (60*0.40 + 20*0.25) / 0.65
	c := agg.Aggregate(map[string]IndexInput{
		"sp500": scored(60, 0),
		"dow":   scored(20, 0),
	})
	assert.Equal(t, 44.62, c.Score)
	assert.Equal(t, model.LabelBullish, c.Label)
	assert.NotContains(t, c.PerIndex, "nasdaq")

	solo := agg.Aggregate(map[string]IndexInput{"sp500": scored(30, 0)})
	assert.Equal(t, 30.0, solo.Score)
}

func TestAggregate_IgnoresUnknownKeys(t *testing.T) {
	agg := defaultAggregator(t)
	c := agg.Aggregate(map[string]IndexInput{
		"sp500":   scored(10, 0),
		"russell": scored(-90, 0),
	})
	assert.Equal(t, 10.0, c.Score)
	assert.NotContains(t, c.PerIndex, "russell")
}

func TestWeights_SumToOneForEverySubset(t *testing.T) {
	agg := defaultAggregator(t)
	keys := []string{"sp500", "nasdaq", "dow"}

	for mask := 1; mask < 1<<len(keys); mask++ {
		present := make(map[string]bool)
		for i, k := range keys {
			if mask&(1<<i) != 0 {
				present[k] = true
			}
		}
		w := agg.Weights(present)
		assert.Len(t, w, len(present))

		var sum float64
		for _, v := range w {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "present=%v", present)
	}

	assert.Empty(t, agg.Weights(nil))
}

func TestAggregate_PerIndexWeightsMatchWeights(t *testing.T) {
	agg := defaultAggregator(t)
	c := agg.Aggregate(map[string]IndexInput{
		"sp500":  scored(10, 0),
		"nasdaq": scored(-10, 0),
	})
	w := agg.Weights(map[string]bool{"sp500": true, "nasdaq": true})
	for k, entry := range c.PerIndex {
		assert.InDelta(t, w[k], entry.Weight, 1e-12)
	}
}

func TestAggregate_BoundedAndLabelled(t *testing.T) {
	agg := defaultAggregator(t)
	for _, s := range []float64{-100, -50, -20, 0, 20, 50, 100} {
		c := agg.Aggregate(map[string]IndexInput{"sp500": scored(s, 0), "nasdaq": scored(-s, 0)})
		assert.GreaterOrEqual(t, c.Score, -100.0)
		assert.LessOrEqual(t, c.Score, 100.0)
		assert.Equal(t, LabelFor(c.Score), c.Label)
	}
}

func TestNewAggregator_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		indices []Index
	}{
		{"empty", nil},
		{"blank key", []Index{{Key: "", Weight: 1}}},
		{"duplicate", []Index{{Key: "a", Weight: 0.5}, {Key: "a", Weight: 0.5}}},
		{"zero weight", []Index{{Key: "a", Weight: 1}, {Key: "b", Weight: 0}}},
		{"negative", []Index{{Key: "a", Weight: 1.5}, {Key: "b", Weight: -0.5}}},
		{"sum off", []Index{{Key: "a", Weight: 0.5}, {Key: "b", Weight: 0.4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(tt.indices)
			if !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("expected ErrInvalidWeights, got %v", err)
			}
		})
	}
}

func TestNewAggregator_CopiesInput(t *testing.T) {
	in := []Index{{Key: "a", Weight: 0.5}, {Key: "b", Weight: 0.5}}
	agg, err := NewAggregator(in)
	require.NoError(t, err)

	in[0].Key = "mutated"
	assert.Equal(t, "a", agg.Indices()[0].Key)
}

func TestAggregate_BlendsWithRenormalizedWeights(t *testing.T) {
	agg := defaultAggregator(t)
	all := map[string]IndexInput{
		"sp500":  scored(62.5, 1.2),
		"nasdaq": scored(-31, -0.4),
		"dow":    scored(7.25, 0.1),
	}
	subsets := [][]string{
		{"sp500"}, {"nasdaq"}, {"dow"},
		{"sp500", "nasdaq"}, {"sp500", "dow"}, {"nasdaq", "dow"},
		{"sp500", "nasdaq", "dow"},
	}
	for _, keys := range subsets {
		inputs := make(map[string]IndexInput)
		present := make(map[string]bool)
		for _, k := range keys {
			inputs[k] = all[k]
			present[k] = true
		}
		w := agg.Weights(present)

		var want, sum float64
		for k, wk := range w {
			want += all[k].Score.Score * wk
			sum += wk
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "%v", keys)

		c := agg.Aggregate(inputs)
		assert.InDelta(t, want, c.Score, 0.005, "%v", keys)
		require.Len(t, c.PerIndex, len(keys))
		for k, entry := range c.PerIndex {
			assert.Equal(t, w[k], entry.Weight, "%v %s", keys, k)
		}
	}
}
