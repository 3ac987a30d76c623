package model

import "time"

// Period is the history window requested from the market data upstream.
type Period string

const (
	Period5D Period = "5d"
	Period1M Period = "1mo"
	Period6M Period = "6mo"
	Period1Y Period = "1y"
)

// Valid reports whether p is one of the supported windows.
func (p Period) Valid() bool {
	switch p {
	case Period5D, Period1M, Period6M, Period1Y:
		return true
	}
	return false
}

// PricePoint is a single daily close.
type PricePoint struct {
	Date  time.Time `msgpack:"d" json:"date"`
	Close float64   `msgpack:"c" json:"close"`
}

// PriceSeries holds a chronological close series for one symbol.
type PriceSeries struct {
	Symbol string       `msgpack:"s" json:"symbol"`
	Points []PricePoint `msgpack:"p" json:"points"`
}

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }
