package indicators

import (
	"fmt"
	"math"

	"stock-analyst/internal/models"
)

// BollingerBands calculates Bollinger Bands with a population standard
// deviation. Requires period points.
type BollingerBands struct {
	period    int
	stdDevMul float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevMul float64) *BollingerBands {
	return &BollingerBands{
		period:    period,
		stdDevMul: stdDevMul,
	}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BB_%d_%.1f", b.period, b.stdDevMul)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Keys() []string {
	return []string{KeyBBUpper, KeyBBMiddle, KeyBBLower}
}

func (b *BollingerBands) Calculate(points []models.PricePoint) (map[string][]float64, error) {
	if b.period <= 0 || b.stdDevMul <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(points) < b.period {
		return nil, ErrInsufficientData
	}

	n := len(points)
	closes := closePrices(points)

	middle := make([]float64, n)
	upper := make([]float64, n)
	lower := make([]float64, n)

	for i := b.period - 1; i < n; i++ {
		slice := closes[i-b.period+1 : i+1]
		sma := mean(slice)
		sd := stdDev(slice)

		middle[i] = sma
		upper[i] = sma + b.stdDevMul*sd
		lower[i] = sma - b.stdDevMul*sd
	}

	return map[string][]float64{
		"middle": middle,
		"upper":  upper,
		"lower":  lower,
	}, nil
}

func (b *BollingerBands) Compute(points []models.PricePoint) Set {
	bands, err := b.Calculate(points)
	if err != nil {
		v := unavailableFrom(err, len(points), b.period)
		return Set{KeyBBUpper: v, KeyBBMiddle: v, KeyBBLower: v}
	}
	last := len(points) - 1
	return Set{
		KeyBBUpper:  OK(bands["upper"][last]),
		KeyBBMiddle: OK(bands["middle"][last]),
		KeyBBLower:  OK(bands["lower"][last]),
	}
}

// RealizedVolatility is the annualized sample standard deviation of daily
// log returns, in percent. Requires 3 points (two returns).
type RealizedVolatility struct{}

// NewRealizedVolatility creates a new realized volatility calculator.
func NewRealizedVolatility() *RealizedVolatility {
	return &RealizedVolatility{}
}

func (v *RealizedVolatility) Name() string {
	return KeyVolatility
}

func (v *RealizedVolatility) Period() int {
	return 3
}

func (v *RealizedVolatility) Keys() []string {
	return []string{KeyVolatility}
}

func (v *RealizedVolatility) Compute(points []models.PricePoint) Set {
	returns := logReturns(closePrices(points))
	if len(returns) < 2 {
		return Set{KeyVolatility: insufficient(len(points), v.Period())}
	}
	sd := sampleStdDev(returns)
	return Set{KeyVolatility: OK(sd * math.Sqrt(TradingDaysPerYear) * 100)}
}
