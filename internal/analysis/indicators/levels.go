package indicators

import (
	"sort"

	"stock-analyst/internal/models"
)

// PivotPoints represents standard pivot point levels.
type PivotPoints struct {
	Pivot float64
	R1    float64
	R2    float64
	S1    float64
	S2    float64
}

// CalculatePivotPoints calculates classic floor-trader pivots.
func CalculatePivotPoints(high, low, close float64) PivotPoints {
	pivot := (high + low + close) / 3

	return PivotPoints{
		Pivot: pivot,
		R1:    2*pivot - low,
		R2:    pivot + (high - low),
		S1:    2*pivot - high,
		S2:    pivot - (high - low),
	}
}

// SupportResistance finds swing levels: a close that is the extreme of the
// window centred on it. The two nearest levels below the last close are
// supports, the two nearest above are resistances. Requires window points.
type SupportResistance struct {
	window int
}

// NewSupportResistance creates a new support/resistance detector.
func NewSupportResistance(window int) *SupportResistance {
	return &SupportResistance{window: window}
}

func (s *SupportResistance) Name() string {
	return "LEVELS"
}

func (s *SupportResistance) Period() int {
	return s.window
}

func (s *SupportResistance) Keys() []string {
	return []string{KeySupport1, KeySupport2, KeyResistance1, KeyResistance2}
}

// Levels returns swing lows below price (nearest first) and swing highs
// above price (nearest first).
func (s *SupportResistance) Levels(points []models.PricePoint) (supports, resistances []float64, err error) {
	if s.window < 3 {
		return nil, nil, ErrInvalidPeriod
	}
	if len(points) < s.window {
		return nil, nil, ErrInsufficientData
	}

	closes := closePrices(points)
	price := closes[len(closes)-1]
	half := s.window / 2

	seen := make(map[float64]bool)
	for i := range closes {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > len(closes) {
			hi = len(closes)
		}
		// A level needs history on both sides to count as a swing.
		if i-lo < 1 || hi-i < 2 {
			continue
		}
		win := closes[lo:hi]
		c := closes[i]
		if seen[c] {
			continue
		}
		switch {
		case c == lowest(win) && c < price:
			supports = append(supports, c)
			seen[c] = true
		case c == highest(win) && c > price:
			resistances = append(resistances, c)
			seen[c] = true
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	sort.Float64s(resistances)
	return supports, resistances, nil
}

func (s *SupportResistance) Compute(points []models.PricePoint) Set {
	supports, resistances, err := s.Levels(points)
	if err != nil {
		v := unavailableFrom(err, len(points), s.window)
		return Set{KeySupport1: v, KeySupport2: v, KeyResistance1: v, KeyResistance2: v}
	}

	recent := tail(points, s.window)
	last := recent[len(recent)-1]
	pivots := CalculatePivotPoints(highest(highPrices(recent)), lowest(lowPrices(recent)), last.Close)

	out := Set{}
	// Each key takes the next candidate beyond the previous level, so the
	// second level is never nearer to price than the first.
	fill := func(keys [2]string, found []float64, fallback [2]float64, beyond func(ref, v float64) bool) {
		candidates := append(append([]float64{}, found...), fallback[:]...)
		ref := last.Close
		next := 0
		for _, key := range keys {
			out[key] = Unavailable("no level found")
			for next < len(candidates) {
				v := candidates[next]
				fromPivot := next >= len(found)
				next++
				if v <= 0 || !beyond(ref, v) {
					continue
				}
				if fromPivot {
					out[key] = OK(v, FlagPivotFallback)
				} else {
					out[key] = OK(v)
				}
				ref = v
				break
			}
		}
	}
	below := func(ref, v float64) bool { return v < ref }
	above := func(ref, v float64) bool { return v > ref }

	fill([2]string{KeySupport1, KeySupport2}, supports, [2]float64{pivots.S1, pivots.S2}, below)
	fill([2]string{KeyResistance1, KeyResistance2}, resistances, [2]float64{pivots.R1, pivots.R2}, above)
	return out
}

// Range52W positions the last close within the high/low range of the last
// lookback bars. Fewer than minPoints is unavailable; fewer than lookback is
// computed over what exists and flagged as reduced coverage.
type Range52W struct {
	lookback  int
	minPoints int
}

// NewRange52W creates a new 52-week range calculator.
func NewRange52W(lookback int) *Range52W {
	return &Range52W{lookback: lookback, minPoints: 20}
}

func (r *Range52W) Name() string {
	return "RANGE_52W"
}

func (r *Range52W) Period() int {
	if r.lookback < r.minPoints {
		return r.lookback
	}
	return r.minPoints
}

func (r *Range52W) Keys() []string {
	return []string{KeyPosition52W, KeyHigh52W, KeyLow52W}
}

func (r *Range52W) Compute(points []models.PricePoint) Set {
	if len(points) < r.Period() {
		v := insufficient(len(points), r.Period())
		return Set{KeyPosition52W: v, KeyHigh52W: v, KeyLow52W: v}
	}

	var flags []string
	if len(points) < r.lookback {
		flags = []string{FlagReducedCoverage}
	}

	window := tail(points, r.lookback)
	high := highest(highPrices(window))
	low := lowest(lowPrices(window))
	price := window[len(window)-1].Close

	position := 50.0
	if high > low {
		position = clamp((price-low)/(high-low)*100, 0, 100)
	}

	return Set{
		KeyPosition52W: OK(position, flags...),
		KeyHigh52W:     OK(high, flags...),
		KeyLow52W:      OK(low, flags...),
	}
}
