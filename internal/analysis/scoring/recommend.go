package scoring

import "stock-analyst/internal/analysis"

// Recommendation is the per-horizon verdict derived from a bundle.
type Recommendation struct {
	ShortTerm  analysis.Stance `json:"short_term"`
	MediumTerm analysis.Stance `json:"medium_term"`
	LongTerm   analysis.Stance `json:"long_term"`
}

// Synthesize derives the recommendation from the bundle labels.
//
// Short term follows the technical label, medium term the technical and
// fundamental labels together, long term the fundamental and sentiment
// labels. A technical reading that opposes the fundamental one makes every
// horizon CAUTIOUS.
func Synthesize(b Bundle) Recommendation {
	tech := b.Technical.Label.Direction()
	fund := b.Fundamental.Label.Direction()
	sent := b.Sentiment.Label.Direction()

	if conflicting(tech, fund) {
		return Recommendation{
			ShortTerm:  analysis.StanceCautious,
			MediumTerm: analysis.StanceCautious,
			LongTerm:   analysis.StanceCautious,
		}
	}

	return Recommendation{
		ShortTerm:  shortTerm(tech, sent),
		MediumTerm: fromSum(tech, fund),
		LongTerm:   fromSum(fund, sent),
	}
}

func conflicting(a, b analysis.Direction) bool {
	return a != analysis.Flat && b != analysis.Flat && a != b
}

func shortTerm(tech, sent analysis.Direction) analysis.Stance {
	switch tech {
	case analysis.Up:
		if sent == analysis.Down {
			return analysis.StanceCautious
		}
		return analysis.StanceBullish
	case analysis.Down:
		if sent == analysis.Up {
			return analysis.StanceCautious
		}
		return analysis.StanceBearish
	default:
		return analysis.StanceNeutral
	}
}

// fromSum reads two equally weighted directions. Opposite directions cancel
// to CAUTIOUS rather than NEUTRAL.
func fromSum(a, b analysis.Direction) analysis.Stance {
	if conflicting(a, b) {
		return analysis.StanceCautious
	}
	switch a + b {
	case 2:
		return analysis.StanceBullish
	case 1:
		return analysis.StanceHold
	case -1:
		return analysis.StanceCautious
	case -2:
		return analysis.StanceBearish
	default:
		return analysis.StanceNeutral
	}
}
