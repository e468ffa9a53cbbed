package scoring

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/sentiment"
)

var reflectValueType = reflect.TypeOf(indicators.Value{})

func newParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	return parameters
}

// indicatorSetGen yields sets where each indicator is independently present
// or unavailable.
func indicatorSetGen() gopter.Gen {
	value := func(lo, hi float64) gopter.Gen {
		return gen.Bool().FlatMap(func(v interface{}) gopter.Gen {
			if !v.(bool) {
				return gen.Const(indicators.Unavailable("insufficient data"))
			}
			return gen.Float64Range(lo, hi).Map(func(f float64) indicators.Value {
				return indicators.OK(f)
			})
		}, reflectValueType)
	}
	w := indicators.DefaultWindows()
	return gopter.CombineGens(
		value(50, 150), value(50, 150), value(0, 100),
		value(50, 150), value(-5, 5), value(0, 100),
	).Map(func(vs []interface{}) indicators.Set {
		return indicators.Set{
			indicators.MAKey(w.MAShort): vs[0].(indicators.Value),
			indicators.MAKey(w.MALong):  vs[1].(indicators.Value),
			indicators.RSIKey(w.RSI):    vs[2].(indicators.Value),
			indicators.KeyBBLower:       vs[3].(indicators.Value),
			indicators.KeyMACD:          vs[4].(indicators.Value),
			indicators.KeyPosition52W:   vs[5].(indicators.Value),
		}
	})
}

func TestProperty_ScoresBoundedAndLabelled(t *testing.T) {
	properties := gopter.NewProperties(newParameters())
	scorer := NewScorer(DefaultRubric(), indicators.DefaultWindows())

	properties.Property("technical score is within [0, 6] with a matching label", prop.ForAll(
		func(price float64, set indicators.Set) bool {
			s := scorer.Technical(price, set)
			return s.Value >= 0 && s.Value <= MaxScore &&
				s.Label == LabelFor(FamilyTechnical, s.Value) &&
				len(s.Conditions) == 6
		},
		gen.Float64Range(50, 150),
		indicatorSetGen(),
	))

	properties.Property("sentiment score is within [0, 6] and monotone in the net score", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			lo := scorer.Sentiment(sentiment.Signal{NetScore: a}).Value
			hi := scorer.Sentiment(sentiment.Signal{NetScore: b}).Value
			return lo >= 0 && hi <= MaxScore && lo <= hi
		},
		gen.Float64Range(-1, 1),
		gen.Float64Range(-1, 1),
	))

	properties.Property("labels are a pure function of the score", prop.ForAll(
		func(score int) bool {
			for _, f := range []Family{FamilyTechnical, FamilyFundamental, FamilySentiment} {
				want := analysis.Flat
				if score >= 4 {
					want = analysis.Up
				} else if score <= 2 {
					want = analysis.Down
				}
				if LabelFor(f, score).Direction() != want {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, MaxScore),
	))

	properties.TestingRun(t)
}

func TestProperty_ConflictIsCautious(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("opposite technical and fundamental labels never yield a directional call", prop.ForAll(
		func(techUp bool, sentScore int) bool {
			b := Bundle{
				Technical:   Score{Value: 5, Label: analysis.LabelBullish},
				Fundamental: Score{Value: 1, Label: analysis.LabelNegative},
				Sentiment:   Score{Value: sentScore, Label: LabelFor(FamilySentiment, sentScore)},
			}
			if !techUp {
				b.Technical = Score{Value: 1, Label: analysis.LabelBearish}
				b.Fundamental = Score{Value: 5, Label: analysis.LabelPositive}
			}
			r := Synthesize(b)
			return r.ShortTerm == analysis.StanceCautious &&
				r.MediumTerm == analysis.StanceCautious &&
				r.LongTerm == analysis.StanceCautious
		},
		gen.Bool(),
		gen.IntRange(0, MaxScore),
	))

	properties.TestingRun(t)
}
