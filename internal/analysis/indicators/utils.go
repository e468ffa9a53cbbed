package indicators

import (
	"errors"
	"math"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

var (
	// ErrInsufficientData is returned when there's not enough data for calculation.
	ErrInsufficientData = apperrors.ErrInsufficientData
	// ErrInvalidPeriod is returned when the period is invalid.
	ErrInvalidPeriod = errors.New("invalid period")
)

// insufficient builds the unavailable reason for a window that is not met.
func insufficient(have, need int) Value {
	return Unavailable(apperrors.NewInsufficientDataError("", have, need).Error())
}

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// stdDev calculates the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// sampleStdDev calculates the sample (n-1) standard deviation.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

// closePrices extracts close prices from points.
func closePrices(points []models.PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Close
	}
	return prices
}

// highPrices extracts high prices from points.
func highPrices(points []models.PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.High
	}
	return prices
}

// lowPrices extracts low prices from points.
func lowPrices(points []models.PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Low
	}
	return prices
}

// volumes extracts volumes from points.
func volumes(points []models.PricePoint) []float64 {
	vols := make([]float64, len(points))
	for i, p := range points {
		vols[i] = p.Volume
	}
	return vols
}

// simpleReturns returns close-to-close percentage changes as fractions.
func simpleReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return out
}

// logReturns returns close-to-close log returns.
func logReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// highest returns the highest value in a slice.
func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the lowest value in a slice.
func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

// tail returns the last n elements, or all of them if there are fewer.
func tail[T any](values []T, n int) []T {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
