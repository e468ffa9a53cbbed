// Package series turns raw, possibly dirty price records into a validated,
// time-ordered series.
package series

import (
	"math"
	"sort"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/pkg/utils"
)

// MinPoints is the smallest series the analysis accepts.
const MinPoints = 2

// Series is an ordered, deduplicated sequence of price points for one
// instrument. Timestamps are strictly increasing.
type Series struct {
	Symbol   string              `json:"symbol"`
	Market   models.Market       `json:"market"`
	Currency string              `json:"currency"`
	Points   []models.PricePoint `json:"-"`
	// Dropped counts records rejected for failing price invariants.
	Dropped int `json:"dropped"`
	// Duplicates counts records superseded by a later record with the
	// same timestamp.
	Duplicates int `json:"duplicates"`
}

// Len returns the number of points.
func (s *Series) Len() int {
	return len(s.Points)
}

// Last returns the most recent point.
func (s *Series) Last() models.PricePoint {
	return s.Points[len(s.Points)-1]
}

// Closes extracts close prices in order.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Normalize validates, sorts and deduplicates raw records.
//
// Records with non-finite or non-positive prices, negative volume, or an
// inconsistent high/low envelope are dropped and counted. When several
// records share a timestamp the last one in input order wins.
func Normalize(symbol string, raw []models.PricePoint) (*Series, error) {
	s := &Series{
		Symbol:   symbol,
		Market:   utils.InferMarket(symbol),
		Currency: utils.ResolveExchange(symbol).Currency,
	}

	kept := make([]models.PricePoint, 0, len(raw))
	for _, p := range raw {
		if !Valid(p) {
			s.Dropped++
			continue
		}
		kept = append(kept, p)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})

	points := make([]models.PricePoint, 0, len(kept))
	for _, p := range kept {
		n := len(points)
		if n > 0 && points[n-1].Timestamp.Equal(p.Timestamp) {
			// Stable sort keeps input order among equal timestamps, so the
			// record seen later replaces the earlier one.
			points[n-1] = p
			s.Duplicates++
			continue
		}
		points = append(points, p)
	}
	s.Points = points

	if len(points) < MinPoints {
		return nil, apperrors.NewInsufficientDataError(symbol, len(points), MinPoints)
	}
	return s, nil
}

// Valid reports whether a record satisfies the price point invariants.
func Valid(p models.PricePoint) bool {
	for _, v := range []float64{p.Open, p.High, p.Low, p.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	if math.IsNaN(p.Volume) || math.IsInf(p.Volume, 0) || p.Volume < 0 {
		return false
	}
	if p.Timestamp.IsZero() {
		return false
	}
	if p.High < math.Max(p.Open, math.Max(p.Close, p.Low)) {
		return false
	}
	if p.Low > math.Min(p.Open, math.Min(p.Close, p.High)) {
		return false
	}
	return true
}
