package calculator

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a series is shorter than a lookback
// requires.
var ErrInsufficientData = errors.New("not enough data")

// ErrZeroBase is returned when a ratio would divide by a zero price.
var ErrZeroBase = errors.New("zero base price")

// Performance returns the percentage change from the close lookback entries
// back (closes[len-lookback]) to the last close:
//
//	(closes[n-1] / closes[n-lookback] - 1) * 100
func Performance(closes []float64, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, errors.New("lookback must be positive")
	}
	n := len(closes)
	if n < lookback {
		return 0, fmt.Errorf("%w: have %d closes, need %d", ErrInsufficientData, n, lookback)
	}
	base := closes[n-lookback]
	if base == 0 {
		return 0, ErrZeroBase
	}
	return (closes[n-1]/base - 1) * 100, nil
}
