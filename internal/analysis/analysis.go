// Package analysis holds the vocabulary shared by the analysis stages:
// signal labels, their directions, horizon stances and data provenance.
package analysis

// Label is the qualitative reading of a 0..6 score.
type Label string

const (
	LabelBullish  Label = "BULLISH"
	LabelBearish  Label = "BEARISH"
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
	LabelNeutral  Label = "NEUTRAL"
)

// Direction is the sign of a label: +1, 0 or -1.
type Direction int

const (
	Down Direction = -1
	Flat Direction = 0
	Up   Direction = 1
)

// Direction maps a label onto its sign.
func (l Label) Direction() Direction {
	switch l {
	case LabelBullish, LabelPositive:
		return Up
	case LabelBearish, LabelNegative:
		return Down
	default:
		return Flat
	}
}

// Stance is a per-horizon recommendation.
type Stance string

const (
	StanceBullish  Stance = "BULLISH"
	StanceHold     Stance = "HOLD"
	StanceNeutral  Stance = "NEUTRAL"
	StanceCautious Stance = "CAUTIOUS"
	StanceBearish  Stance = "BEARISH"
)

// Provenance records where a derived value came from.
type Provenance string

const (
	Observed    Provenance = "observed"
	Estimated   Provenance = "estimated"
	Unavailable Provenance = "unavailable"
)

// Trend is a coarse up/down reading of price versus an earlier close.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendUnknown Trend = "unknown"
)
