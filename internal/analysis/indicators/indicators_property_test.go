package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stock-analyst/internal/models"
)

// pointGen generates valid price points with realistic OHLCV values.
func pointGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.PricePoint{}), map[string]gopter.Gen{
		"Open":   gen.Float64Range(50.0, 500.0),
		"High":   gen.Float64Range(50.0, 500.0),
		"Low":    gen.Float64Range(50.0, 500.0),
		"Close":  gen.Float64Range(50.0, 500.0),
		"Volume": gen.Float64Range(1000, 10000000),
	})
}

// pointSliceGen generates a slice of valid points with daily timestamps and
// a length in [minLen, maxLen].
func pointSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.IntRange(minLen, maxLen).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), pointGen())
	}, reflect.TypeOf([]models.PricePoint{})).Map(func(points []models.PricePoint) []models.PricePoint {
		for len(points) < minLen {
			points = append(points, models.PricePoint{Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000})
		}
		start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
		for i := range points {
			p := &points[i]
			p.Timestamp = start.AddDate(0, 0, i)
			p.High = math.Max(p.High, math.Max(p.Open, p.Close))
			p.Low = math.Min(p.Low, math.Min(p.Open, p.Close))
		}
		return points
	})
}

func closesToPoints(closes []float64) []models.PricePoint {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return points
}

func newParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	return parameters
}

// Property: the moving average equals the naive mean of the last n closes
// whenever the series is long enough, and is unavailable otherwise.
func TestProperty_MovingAverageMatchesNaiveMean(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("MA(n) == mean(last n closes)", prop.ForAll(
		func(points []models.PricePoint, n int) bool {
			v := run(NewSMA(n), points)[MAKey(n)]
			if len(points) < n {
				return !v.Available()
			}
			var total float64
			for _, p := range points[len(points)-n:] {
				total += p.Close
			}
			return v.Available() && math.Abs(v.Value-total/float64(n)) < 1e-9
		},
		pointSliceGen(1, 80),
		gen.IntRange(1, 60),
	))

	properties.TestingRun(t)
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("RSI values are within [0, 100]", prop.ForAll(
		func(points []models.PricePoint) bool {
			rsi := NewRSI(14)
			values, err := rsi.Calculate(points)
			if err != nil {
				return len(points) < rsi.Period()
			}
			for i, v := range values {
				if i < 14 {
					continue
				}
				if v < 0 || v > 100 || math.IsNaN(v) {
					return false
				}
			}
			return true
		},
		pointSliceGen(15, 100),
	))

	properties.Property("constant series has RSI 100", prop.ForAll(
		func(price float64, n int) bool {
			closes := make([]float64, n)
			for i := range closes {
				closes[i] = price
			}
			v := run(NewRSI(14), closesToPoints(closes))[RSIKey(14)]
			return v.Available() && v.Value == 100
		},
		gen.Float64Range(1, 1000),
		gen.IntRange(15, 60),
	))

	properties.TestingRun(t)
}

func TestProperty_DrawdownBounds(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("max drawdown is within [-100, 0]", prop.ForAll(
		func(points []models.PricePoint) bool {
			v := run(NewMaxDrawdown(), points)[KeyMaxDrawdown]
			return v.Available() && v.Value <= 0 && v.Value >= -100
		},
		pointSliceGen(2, 120),
	))

	properties.TestingRun(t)
}

func TestProperty_EngineIsOrderIndependent(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("parallel and sequential engines agree", prop.ForAll(
		func(points []models.PricePoint) bool {
			parallel := NewStandardEngine(DefaultWindows(), 0.02, 8).Compute(points)
			sequential := NewStandardEngine(DefaultWindows(), 0.02, 1).Compute(points)
			return reflect.DeepEqual(parallel, sequential)
		},
		pointSliceGen(2, 80),
	))

	properties.TestingRun(t)
}

func TestProperty_Position52WWithinBounds(t *testing.T) {
	properties := gopter.NewProperties(newParameters())

	properties.Property("52-week position is a percentage", prop.ForAll(
		func(points []models.PricePoint) bool {
			v := run(NewRange52W(TradingDaysPerYear), points)[KeyPosition52W]
			if len(points) < 20 {
				return !v.Available()
			}
			if !v.Available() || v.Value < 0 || v.Value > 100 {
				return false
			}
			return v.HasFlag(FlagReducedCoverage) == (len(points) < TradingDaysPerYear)
		},
		pointSliceGen(2, 300),
	))

	properties.TestingRun(t)
}
