// Package fundamental derives valuation metrics for an instrument, passing
// through supplied fundamentals and estimating the rest from sector
// multiples and price history.
package fundamental

import (
	"fmt"
	"math"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/series"
	"stock-analyst/internal/models"
)

const (
	// trailingPeriods is the lookback of the trailing return.
	trailingPeriods = 20
	// rangePeriods is the lookback of the recent high/low comparison.
	rangePeriods = 30
	// minGrowthHistory is the shortest history trusted for a growth estimate.
	minGrowthHistory = 20
)

// Metric is a value with its provenance. Unavailable metrics have a zero value.
type Metric struct {
	Value      float64             `json:"value"`
	Provenance analysis.Provenance `json:"provenance"`
}

// Available reports whether the metric carries a value.
func (m Metric) Available() bool {
	return m.Provenance != analysis.Unavailable
}

func observed(v float64) Metric  { return Metric{Value: v, Provenance: analysis.Observed} }
func estimated(v float64) Metric { return Metric{Value: v, Provenance: analysis.Estimated} }

var unavailable = Metric{Provenance: analysis.Unavailable}

// Estimate is the fundamental picture of one instrument.
type Estimate struct {
	PE         Metric              `json:"pe"`
	EPS        Metric              `json:"eps"`
	PEG        Metric              `json:"peg"`
	GrowthRate Metric              `json:"growth_rate"`
	Sector     string              `json:"sector"`
	Confidence analysis.Provenance `json:"confidence"`

	Price                  float64             `json:"price"`
	TrailingReturnPct      float64             `json:"trailing_return_pct"`
	VsHigh30Pct            float64             `json:"vs_high_30_pct"`
	VsLow30Pct             float64             `json:"vs_low_30_pct"`
	// TrailingReturnCoverage and Range30Coverage are Estimated when the
	// series is shorter than the lookback and the whole series was used.
	TrailingReturnCoverage analysis.Provenance `json:"trailing_return_coverage"`
	Range30Coverage        analysis.Provenance `json:"range_30_coverage"`
	ShortTrend             analysis.Trend      `json:"short_trend"`
	MediumTrend            analysis.Trend      `json:"medium_trend"`
}

// Estimator fills in fundamentals from a sector table.
type Estimator struct {
	table *Table
}

// NewEstimator creates an estimator. A nil table uses the built-in one.
func NewEstimator(table *Table) *Estimator {
	if table == nil {
		table = DefaultTable()
	}
	return &Estimator{table: table}
}

// Estimate combines supplied fundamentals with estimates. Supplied values
// always pass through as observed; only missing ones are estimated. A
// supplied NaN or infinity counts as missing.
func (e *Estimator) Estimate(seed *models.FundamentalSeed, s *series.Series) Estimate {
	if seed == nil {
		seed = &models.FundamentalSeed{}
	}
	closes := s.Closes()
	price := closes[len(closes)-1]
	profile, known := e.table.Resolve(s.Symbol, seed.Sector)

	est := Estimate{
		Sector:     profile.Name,
		Confidence: analysis.Estimated,
		Price:      price,
	}
	pe, hasPE := finite(seed.PE)
	eps, hasEPS := finite(seed.EPS)
	est.PE, est.EPS = e.earnings(pe, hasPE, eps, hasEPS, price, profile)
	if hasPE && hasEPS {
		est.Confidence = analysis.Observed
	}

	if g, ok := finite(seed.GrowthRate); ok {
		est.GrowthRate = observed(g)
	} else if known {
		est.GrowthRate = estimated(profile.Growth)
	} else {
		est.GrowthRate = estimated(growthFromPrices(closes, e.table.Default.Growth))
	}

	if peg, ok := finite(seed.PEG); ok {
		est.PEG = observed(peg)
	} else if est.PE.Available() && est.GrowthRate.Value > 0 {
		est.PEG = estimated(est.PE.Value / (est.GrowthRate.Value * 100))
	} else {
		est.PEG = unavailable
	}

	est.TrailingReturnPct = trailingReturn(closes, trailingPeriods)
	est.TrailingReturnCoverage = coverage(len(closes)-1, trailingPeriods)
	recent := closes
	if len(recent) > rangePeriods {
		recent = recent[len(recent)-rangePeriods:]
	}
	hi, lo := maxOf(recent), minOf(recent)
	est.VsHigh30Pct = (price - hi) / hi * 100
	est.VsLow30Pct = (price - lo) / lo * 100
	est.Range30Coverage = coverage(len(closes), rangePeriods)
	est.ShortTrend = trendVersus(closes, 5)
	est.MediumTrend = trendVersus(closes, 20)

	return est
}

// Warnings lists the price-derived figures that used a shorter history than
// their lookback.
func (est Estimate) Warnings() []string {
	var out []string
	if est.TrailingReturnCoverage == analysis.Estimated {
		out = append(out, fmt.Sprintf("trailing return covers less than %d periods", trailingPeriods))
	}
	if est.Range30Coverage == analysis.Estimated {
		out = append(out, fmt.Sprintf("30-day high/low covers less than %d points", rangePeriods))
	}
	return out
}

// coverage is Observed when have reaches want and Estimated otherwise.
func coverage(have, want int) analysis.Provenance {
	if have < want {
		return analysis.Estimated
	}
	return analysis.Observed
}

// finite dereferences a supplied value, treating nil, NaN and infinities as
// absent.
func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// earnings resolves PE and EPS. When one of the pair is supplied the other
// is implied by the last close.
func (e *Estimator) earnings(pe float64, hasPE bool, eps float64, hasEPS bool, price float64, profile Profile) (Metric, Metric) {
	switch {
	case hasPE && hasEPS:
		return observed(pe), observed(eps)
	case hasPE:
		if pe > 0 {
			return observed(pe), estimated(price / pe)
		}
		return observed(pe), unavailable
	case hasEPS:
		if eps > 0 {
			return estimated(price / eps), observed(eps)
		}
		// Negative earnings have no meaningful multiple.
		return unavailable, observed(eps)
	default:
		return estimated(profile.PE), estimated(price / profile.PE)
	}
}

// growthFromPrices annualizes the whole-series price performance, clamped
// to [0, 1]. Short histories fall back to def.
func growthFromPrices(closes []float64, def float64) float64 {
	n := len(closes)
	if n < minGrowthHistory || closes[0] <= 0 {
		return def
	}
	total := closes[n-1] / closes[0]
	annual := math.Pow(total, float64(252)/float64(n-1)) - 1
	if math.IsNaN(annual) || math.IsInf(annual, 0) {
		return def
	}
	return math.Max(0, math.Min(1, annual))
}

// trailingReturn is the percent change over the last periods closes, or
// over the whole series when it is shorter.
func trailingReturn(closes []float64, periods int) float64 {
	start := len(closes) - 1 - periods
	if start < 0 {
		start = 0
	}
	return (closes[len(closes)-1] - closes[start]) / closes[start] * 100
}

// trendVersus compares the last close with the close lookback places from
// the end (so 5 compares with the fifth-to-last close).
func trendVersus(closes []float64, lookback int) analysis.Trend {
	n := len(closes)
	if n < lookback {
		return analysis.TrendUnknown
	}
	if closes[n-1] > closes[n-lookback] {
		return analysis.TrendUp
	}
	return analysis.TrendDown
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}
