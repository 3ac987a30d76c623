package calculator

import "fmt"

// WindowRatio returns last/first over the whole series.
func WindowRatio(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrInsufficientData)
	}
	if closes[0] == 0 {
		return 0, ErrZeroBase
	}
	return closes[len(closes)-1] / closes[0], nil
}

// WindowDelta returns last-first over the whole series.
func WindowDelta(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrInsufficientData)
	}
	return closes[len(closes)-1] - closes[0], nil
}

// Last returns the final close.
func Last(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrInsufficientData)
	}
	return closes[len(closes)-1], nil
}
