// Package scoring turns the technical, fundamental and sentiment readings of
// an instrument into bounded 0..6 scores and a multi-horizon recommendation.
package scoring

import (
	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/fundamental"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/sentiment"
)

// MaxScore is the upper bound of every family score.
const MaxScore = 6

// ConditionResult records one rubric condition.
type ConditionResult struct {
	Name      string `json:"name"`
	Met       bool   `json:"met"`
	Weight    int    `json:"weight"`
	Available bool   `json:"available"`
	// Reduced marks a condition read from a shorter history than its lookback.
	Reduced bool `json:"reduced,omitempty"`
}

// Score is a family score with its label and the conditions behind it.
type Score struct {
	Value      int               `json:"value"`
	Label      analysis.Label    `json:"label"`
	Conditions []ConditionResult `json:"conditions"`
}

// Bundle groups the three family scores.
type Bundle struct {
	Technical   Score `json:"technical"`
	Fundamental Score `json:"fundamental"`
	Sentiment   Score `json:"sentiment"`
}

// Scorer evaluates rubrics.
type Scorer struct {
	rubric  Rubric
	windows indicators.Windows
}

// NewScorer creates a scorer. The windows decide which indicator keys the
// technical rubric reads.
func NewScorer(rubric Rubric, windows indicators.Windows) *Scorer {
	return &Scorer{rubric: rubric, windows: windows}
}

type check struct {
	name      string
	met       bool
	available bool
}

func (s *Scorer) tally(f Family, checks []check) Score {
	score := Score{Conditions: make([]ConditionResult, 0, len(checks))}
	for _, c := range checks {
		w := s.rubric.Weight(f, c.name)
		met := c.available && c.met
		if met {
			score.Value += w
		}
		score.Conditions = append(score.Conditions, ConditionResult{
			Name:      c.name,
			Met:       met,
			Weight:    w,
			Available: c.available,
		})
	}
	score.Value = clamp(score.Value, 0, MaxScore)
	score.Label = LabelFor(f, score.Value)
	return score
}

// Technical scores the indicator set against the last close. Unavailable
// indicators leave their condition unmet.
func (s *Scorer) Technical(price float64, set indicators.Set) Score {
	maShort := set.Lookup(indicators.MAKey(s.windows.MAShort))
	maLong := set.Lookup(indicators.MAKey(s.windows.MALong))
	rsi := set.Lookup(indicators.RSIKey(s.windows.RSI))
	bbLower := set.Lookup(indicators.KeyBBLower)
	macd := set.Lookup(indicators.KeyMACD)
	pos := set.Lookup(indicators.KeyPosition52W)

	return s.tally(FamilyTechnical, []check{
		{CondPriceAboveMAShort, price > maShort.Value, maShort.Available()},
		{CondMAShortAboveMALong, maShort.Value > maLong.Value, maShort.Available() && maLong.Available()},
		{CondRSIInRange, rsi.Value >= 40 && rsi.Value <= 70, rsi.Available()},
		{CondPriceAboveBBLower, price > bbLower.Value, bbLower.Available()},
		{CondMACDPositive, macd.Value > 0, macd.Available()},
		{CondPosition52WAboveMid, pos.Value > 50, pos.Available()},
	})
}

// Fundamental scores a fundamental estimate. The price-derived conditions
// are always available and are marked reduced on short histories.
func (s *Scorer) Fundamental(est fundamental.Estimate) Score {
	score := s.tally(FamilyFundamental, []check{
		{CondEPSPositive, est.EPS.Value > 0, est.EPS.Available()},
		{CondPEReasonable, est.PE.Value > 0 && est.PE.Value <= 30, est.PE.Available()},
		{CondPEGAttractive, est.PEG.Value > 0 && est.PEG.Value <= 1.5, est.PEG.Available()},
		{CondGrowthHealthy, est.GrowthRate.Value >= 0.10, est.GrowthRate.Available()},
		{CondTrailingReturnPositive, est.TrailingReturnPct > 0, true},
		{CondNear30DHigh, est.VsHigh30Pct >= -10, true},
	})
	for i := range score.Conditions {
		c := &score.Conditions[i]
		switch c.Name {
		case CondTrailingReturnPositive:
			c.Reduced = est.TrailingReturnCoverage == analysis.Estimated
		case CondNear30DHigh:
			c.Reduced = est.Range30Coverage == analysis.Estimated
		}
	}
	return score
}

// Sentiment scores the net score on a six-rung ladder. A net score of zero
// lands on the neutral midpoint of 3.
func (s *Scorer) Sentiment(sig sentiment.Signal) Score {
	n := sig.NetScore
	return s.tally(FamilySentiment, []check{
		{CondNetAboveMinus075, n > -0.75, true},
		{CondNetAboveMinus050, n > -0.5, true},
		{CondNetAboveMinus025, n > -0.25, true},
		{CondNetAtLeast025, n >= 0.25, true},
		{CondNetAtLeast050, n >= 0.5, true},
		{CondNetAtLeast075, n >= 0.75, true},
	})
}

// Score evaluates all three families.
func (s *Scorer) Score(price float64, set indicators.Set, est fundamental.Estimate, sig sentiment.Signal) Bundle {
	return Bundle{
		Technical:   s.Technical(price, set),
		Fundamental: s.Fundamental(est),
		Sentiment:   s.Sentiment(sig),
	}
}

// LabelFor maps a score onto its label. Technical scores read
// BULLISH/BEARISH, the other families POSITIVE/NEGATIVE.
func LabelFor(f Family, score int) analysis.Label {
	up, down := analysis.LabelBullish, analysis.LabelBearish
	if f != FamilyTechnical {
		up, down = analysis.LabelPositive, analysis.LabelNegative
	}
	switch {
	case score >= 4:
		return up
	case score <= 2:
		return down
	default:
		return analysis.LabelNeutral
	}
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
