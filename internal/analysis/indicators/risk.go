package indicators

import (
	"math"

	"stock-analyst/internal/models"
)

// MaxDrawdown is the largest peak-to-trough decline of closes over the whole
// series, as a percentage in [-100, 0].
type MaxDrawdown struct{}

// NewMaxDrawdown creates a new drawdown calculator.
func NewMaxDrawdown() *MaxDrawdown {
	return &MaxDrawdown{}
}

func (d *MaxDrawdown) Name() string {
	return KeyMaxDrawdown
}

func (d *MaxDrawdown) Period() int {
	return 2
}

func (d *MaxDrawdown) Keys() []string {
	return []string{KeyMaxDrawdown}
}

func (d *MaxDrawdown) Compute(points []models.PricePoint) Set {
	if len(points) < d.Period() {
		return Set{KeyMaxDrawdown: insufficient(len(points), d.Period())}
	}
	return Set{KeyMaxDrawdown: OK(DrawdownPercent(closePrices(points)))}
}

// DrawdownPercent runs a single forward pass tracking the running peak.
func DrawdownPercent(closes []float64) float64 {
	if len(closes) == 0 {
		return 0
	}
	peak := closes[0]
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			continue
		}
		if dd := (c - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return clamp(worst*100, -100, 0)
}

// Sharpe is the annualized Sharpe ratio of daily simple returns against an
// annual risk-free rate. Requires 3 points; a zero-variance series is
// unavailable rather than infinite.
type Sharpe struct {
	riskFreeRate float64
}

// NewSharpe creates a new Sharpe ratio calculator. riskFreeRate is annual,
// expressed as a fraction (0.04 for 4%).
func NewSharpe(riskFreeRate float64) *Sharpe {
	return &Sharpe{riskFreeRate: riskFreeRate}
}

func (s *Sharpe) Name() string {
	return KeySharpe
}

func (s *Sharpe) Period() int {
	return 3
}

func (s *Sharpe) Keys() []string {
	return []string{KeySharpe}
}

func (s *Sharpe) Compute(points []models.PricePoint) Set {
	returns := simpleReturns(closePrices(points))
	if len(returns) < 2 {
		return Set{KeySharpe: insufficient(len(points), s.Period())}
	}
	sd := sampleStdDev(returns)
	if sd == 0 || math.IsNaN(sd) {
		return Set{KeySharpe: Unavailable("zero return variance")}
	}
	excess := mean(returns) - s.riskFreeRate/TradingDaysPerYear
	return Set{KeySharpe: OK(excess / sd * math.Sqrt(TradingDaysPerYear))}
}
