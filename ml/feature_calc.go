package ml

import (
	"fmt"
	"math"
	"strings"
)

// Weighting turns a raw term count into a feature value.
type Weighting string

const (
	// RawCount uses the occurrence count unchanged.
	RawCount Weighting = "raw"
	// LogScaled dampens repeated terms to 1 + log10(count).
	LogScaled Weighting = "log"
)

// ParseWeighting accepts "raw", "log" or an empty string, which means RawCount.
func ParseWeighting(value string) (Weighting, error) {
	switch Weighting(strings.ToLower(strings.TrimSpace(value))) {
	case "", RawCount:
		return RawCount, nil
	case LogScaled:
		return LogScaled, nil
	default:
		return "", fmt.Errorf("%w: unknown weighting %q", ErrInvalidInput, value)
	}
}

// Weight returns the feature value for a term seen count times.
func (w Weighting) Weight(count int) float64 {
	switch w {
	case LogScaled:
		return CalculateLogScaledCount(count)
	default:
		return float64(count)
	}
}

// CalculateLogScaledCount returns 1 + log10(count), or 0 for counts below one.
func CalculateLogScaledCount(count int) float64 {
	if count < 1 {
		return 0
	}
	return 1 + math.Log10(float64(count))
}

// Round rounds value to the given number of decimal places.
func Round(value float64, precision int) float64 {
	if precision <= 0 {
		return math.Round(value)
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(value*scale) / scale
}
