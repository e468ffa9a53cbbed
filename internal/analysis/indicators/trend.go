package indicators

import (
	"fmt"

	"stock-analyst/internal/models"
)

// SMA calculates Simple Moving Average of closes. Requires period points.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return MAKey(s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Keys() []string {
	return []string{s.Name()}
}

func (s *SMA) Calculate(points []models.PricePoint) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(points) < s.period {
		return nil, ErrInsufficientData
	}

	result := make([]float64, len(points))
	closes := closePrices(points)

	for i := s.period - 1; i < len(points); i++ {
		result[i] = mean(closes[i-s.period+1 : i+1])
	}

	return result, nil
}

func (s *SMA) Compute(points []models.PricePoint) Set {
	return Set{s.Name(): latest(s.Calculate(points))}
}

// EMA calculates Exponential Moving Average seeded with the SMA of the first
// period closes. Requires period points.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return EMAKey(e.period)
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Keys() []string {
	return []string{e.Name()}
}

func (e *EMA) Calculate(points []models.PricePoint) ([]float64, error) {
	if e.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(points) < e.period {
		return nil, ErrInsufficientData
	}
	return CalculateEMA(closePrices(points), e.period), nil
}

func (e *EMA) Compute(points []models.PricePoint) Set {
	return Set{e.Name(): latest(e.Calculate(points))}
}

// CalculateEMA calculates EMA on raw values (helper for other indicators).
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	result := make([]float64, len(values))
	multiplier := 2.0 / float64(period+1)

	result[period-1] = mean(values[:period])

	for i := period; i < len(values); i++ {
		result[i] = (values[i]-result[i-1])*multiplier + result[i-1]
	}

	return result
}

// MACD calculates Moving Average Convergence Divergence.
//
// The MACD line needs slow points. The signal line and histogram need
// slow+signal points; below that only the line is reported.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator, conventionally (12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

// Period is the requirement of the MACD line itself.
func (m *MACD) Period() int {
	return m.slowPeriod
}

// SignalPeriod is the requirement of a stable signal line.
func (m *MACD) SignalPeriod() int {
	return m.slowPeriod + m.signalPeriod
}

// KeyPeriod returns the requirement of one of the MACD keys.
func (m *MACD) KeyPeriod(key string) int {
	if key == KeyMACD {
		return m.Period()
	}
	return m.SignalPeriod()
}

func (m *MACD) Keys() []string {
	return []string{KeyMACD, KeyMACDSignal, KeyMACDHist}
}

func (m *MACD) Calculate(points []models.PricePoint) (map[string][]float64, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(points) < m.Period() {
		return nil, ErrInsufficientData
	}

	n := len(points)
	closes := closePrices(points)
	fastEMA := CalculateEMA(closes, m.fastPeriod)
	slowEMA := CalculateEMA(closes, m.slowPeriod)

	// MACD Line = Fast EMA - Slow EMA
	macdLine := make([]float64, n)
	for i := m.slowPeriod - 1; i < n; i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal Line = EMA of MACD Line
	signalLine := make([]float64, n)
	histogram := make([]float64, n)
	startIdx := m.slowPeriod - 1
	if signalEMA := CalculateEMA(macdLine[startIdx:], m.signalPeriod); signalEMA != nil {
		for i := m.signalPeriod - 1; i < len(signalEMA); i++ {
			signalLine[startIdx+i] = signalEMA[i]
			histogram[startIdx+i] = macdLine[startIdx+i] - signalEMA[i]
		}
	}

	return map[string][]float64{
		"macd":      macdLine,
		"signal":    signalLine,
		"histogram": histogram,
	}, nil
}

func (m *MACD) Compute(points []models.PricePoint) Set {
	values, err := m.Calculate(points)
	if err != nil {
		return Set{
			KeyMACD:       unavailableFrom(err, len(points), m.Period()),
			KeyMACDSignal: unavailableFrom(err, len(points), m.SignalPeriod()),
			KeyMACDHist:   unavailableFrom(err, len(points), m.SignalPeriod()),
		}
	}

	last := len(points) - 1
	out := Set{KeyMACD: OK(values["macd"][last])}
	if len(points) < m.SignalPeriod() {
		out[KeyMACDSignal] = insufficient(len(points), m.SignalPeriod())
		out[KeyMACDHist] = insufficient(len(points), m.SignalPeriod())
		return out
	}
	out[KeyMACDSignal] = OK(values["signal"][last])
	out[KeyMACDHist] = OK(values["histogram"][last])
	return out
}
