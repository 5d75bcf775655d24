package model

import (
	"errors"
	"fmt"
	"math"
	"time"

	"MarketPulse/internal/calendar"
)

// PriceBar is a single daily bar. Date is midnight UTC of the trading day.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IndexSeries is one index's bars, strictly increasing by date.
type IndexSeries struct {
	Symbol string
	Bars   []PriceBar
}

var (
	ErrEmptySymbol      = errors.New("empty symbol")
	ErrUnsortedBars     = errors.New("bars not in ascending date order")
	ErrDuplicateDate    = errors.New("duplicate bar date")
	ErrNonPositiveClose = errors.New("non-positive close")
	ErrInvalidPrice     = errors.New("price is not a finite number")
	ErrNegativeVolume   = errors.New("negative volume")
	ErrNonTradingDay    = errors.New("bar dated on a non-trading day")
)

// BarError locates a malformed bar inside a series.
type BarError struct {
	Symbol string
	Index  int
	Date   time.Time
	Err    error
}

func (e *BarError) Error() string {
	return fmt.Sprintf("%s bar %d (%s): %v", e.Symbol, e.Index, calendar.Format(e.Date), e.Err)
}

func (e *BarError) Unwrap() error { return e.Err }

// NewIndexSeries validates bars and returns the series. The slice is not copied.
func NewIndexSeries(symbol string, bars []PriceBar) (IndexSeries, error) {
	s := IndexSeries{Symbol: symbol, Bars: bars}
	if err := s.Validate(); err != nil {
		return IndexSeries{}, err
	}
	return s, nil
}

// Validate checks ordering, positivity and the trading-day filter.
func (s IndexSeries) Validate() error {
	if s.Symbol == "" {
		return ErrEmptySymbol
	}
	for i, b := range s.Bars {
		fail := func(err error) error {
			return &BarError{Symbol: s.Symbol, Index: i, Date: b.Date, Err: err}
		}
		for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return fail(ErrInvalidPrice)
			}
		}
		if b.Close <= 0 {
			return fail(ErrNonPositiveClose)
		}
		if b.Volume < 0 {
			return fail(ErrNegativeVolume)
		}
		// Dates are compared as UTC calendar days, the same key the backfill uses.
		d := calendar.Day(b.Date)
		if !calendar.IsTradingDay(d) {
			return fail(ErrNonTradingDay)
		}
		if i == 0 {
			continue
		}
		prev := calendar.Day(s.Bars[i-1].Date)
		switch {
		case d.Equal(prev):
			return fail(ErrDuplicateDate)
		case d.Before(prev):
			return fail(ErrUnsortedBars)
		}
	}
	return nil
}

// Len returns the number of bars.
func (s IndexSeries) Len() int { return len(s.Bars) }

// Last returns the most recent bar, false when the series is empty.
func (s IndexSeries) Last() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
