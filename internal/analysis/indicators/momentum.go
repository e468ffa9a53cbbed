package indicators

import (
	"stock-analyst/internal/models"
)

// RSI calculates the Relative Strength Index with Wilder smoothing.
// Requires period+1 points since it works on close-to-close changes.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return RSIKey(r.period)
}

func (r *RSI) Period() int {
	return r.period + 1
}

func (r *RSI) Keys() []string {
	return []string{r.Name()}
}

func (r *RSI) Calculate(points []models.PricePoint) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(points) < r.Period() {
		return nil, ErrInsufficientData
	}

	n := len(points)
	result := make([]float64, n)
	closes := closePrices(points)

	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	// First average using SMA
	avgGain := mean(gains[1 : r.period+1])
	avgLoss := mean(losses[1 : r.period+1])
	result[r.period] = rsiValue(avgGain, avgLoss)

	// Subsequent values using Wilder smoothing
	for i := r.period + 1; i < n; i++ {
		avgGain = (avgGain*float64(r.period-1) + gains[i]) / float64(r.period)
		avgLoss = (avgLoss*float64(r.period-1) + losses[i]) / float64(r.period)
		result[i] = rsiValue(avgGain, avgLoss)
	}

	return result, nil
}

func (r *RSI) Compute(points []models.PricePoint) Set {
	return Set{r.Name(): latest(r.Calculate(points))}
}

// rsiValue is 100 whenever there were no losses, including a flat series.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return clamp(100-(100/(1+rs)), 0, 100)
}
