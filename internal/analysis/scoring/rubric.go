package scoring

import (
	"fmt"
	"sort"

	apperrors "stock-analyst/internal/errors"
)

// Family names a rubric.
type Family string

const (
	FamilyTechnical   Family = "technical"
	FamilyFundamental Family = "fundamental"
	FamilySentiment   Family = "sentiment"
)

// Technical conditions.
const (
	CondPriceAboveMAShort   = "price_above_ma_short"
	CondMAShortAboveMALong  = "ma_short_above_ma_long"
	CondRSIInRange          = "rsi_in_range"
	CondPriceAboveBBLower   = "price_above_bb_lower"
	CondMACDPositive        = "macd_positive"
	CondPosition52WAboveMid = "position_52w_above_half"
)

// Fundamental conditions.
const (
	CondEPSPositive            = "eps_positive"
	CondPEReasonable           = "pe_reasonable"
	CondPEGAttractive          = "peg_attractive"
	CondGrowthHealthy          = "growth_healthy"
	CondTrailingReturnPositive = "trailing_return_positive"
	CondNear30DHigh            = "near_30d_high"
)

// Sentiment ladder conditions.
const (
	CondNetAboveMinus075 = "net_above_-0.75"
	CondNetAboveMinus050 = "net_above_-0.5"
	CondNetAboveMinus025 = "net_above_-0.25"
	CondNetAtLeast025    = "net_at_least_0.25"
	CondNetAtLeast050    = "net_at_least_0.5"
	CondNetAtLeast075    = "net_at_least_0.75"
)

var conditionNames = map[Family][]string{
	FamilyTechnical: {
		CondPriceAboveMAShort, CondMAShortAboveMALong, CondRSIInRange,
		CondPriceAboveBBLower, CondMACDPositive, CondPosition52WAboveMid,
	},
	FamilyFundamental: {
		CondEPSPositive, CondPEReasonable, CondPEGAttractive,
		CondGrowthHealthy, CondTrailingReturnPositive, CondNear30DHigh,
	},
	FamilySentiment: {
		CondNetAboveMinus075, CondNetAboveMinus050, CondNetAboveMinus025,
		CondNetAtLeast025, CondNetAtLeast050, CondNetAtLeast075,
	},
}

// Conditions returns the condition names of a family in evaluation order.
func Conditions(f Family) []string {
	return append([]string(nil), conditionNames[f]...)
}

// Weights overrides condition weights by name. Missing names weigh 1.
type Weights map[string]int

// Rubric holds the weight overrides of all three families. Every weight must
// be 0 (condition disabled) or 1.
type Rubric struct {
	Technical   Weights `mapstructure:"technical" json:"technical,omitempty"`
	Fundamental Weights `mapstructure:"fundamental" json:"fundamental,omitempty"`
	Sentiment   Weights `mapstructure:"sentiment" json:"sentiment,omitempty"`
}

// DefaultRubric weighs every condition 1.
func DefaultRubric() Rubric {
	return Rubric{}
}

func (r Rubric) weights(f Family) Weights {
	switch f {
	case FamilyTechnical:
		return r.Technical
	case FamilyFundamental:
		return r.Fundamental
	default:
		return r.Sentiment
	}
}

// Weight returns the weight of a condition.
func (r Rubric) Weight(f Family, name string) int {
	if w, ok := r.weights(f)[name]; ok {
		return w
	}
	return 1
}

// Validate rejects unknown condition names and weights other than 0 or 1.
func (r Rubric) Validate() error {
	for _, f := range []Family{FamilyTechnical, FamilyFundamental, FamilySentiment} {
		known := make(map[string]bool)
		for _, name := range conditionNames[f] {
			known[name] = true
		}

		w := r.weights(f)
		names := make([]string, 0, len(w))
		for name := range w {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			field := fmt.Sprintf("rubric.%s.%s", f, name)
			if !known[name] {
				return apperrors.NewConfigurationError(field, w[name], "unknown condition")
			}
			if v := w[name]; v != 0 && v != 1 {
				return apperrors.NewConfigurationError(field, v, "weight must be 0 or 1")
			}
		}
	}
	return nil
}
