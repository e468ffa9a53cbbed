package analyzer

import (
	"encoding/json"
	"time"

	"stock-analyst/internal/analysis/fundamental"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/scoring"
	"stock-analyst/internal/analysis/sentiment"
	"stock-analyst/internal/models"
)

// SeriesInfo describes the normalized series a report was built from.
type SeriesInfo struct {
	Symbol     string        `json:"symbol"`
	Market     models.Market `json:"market"`
	Currency   string        `json:"currency"`
	Points     int           `json:"points"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Dropped    int           `json:"dropped"`
	Duplicates int           `json:"duplicates"`
}

// Report is the complete, immutable result of one analysis.
type Report struct {
	Series         SeriesInfo             `json:"series"`
	LastPrice      float64                `json:"last_price"`
	Indicators     indicators.Set         `json:"indicators"`
	VolumeTrend    indicators.VolumeTrend `json:"volume_trend"`
	Fundamental    fundamental.Estimate   `json:"fundamental"`
	Sentiment      sentiment.Signal       `json:"sentiment"`
	Scores         scoring.Bundle         `json:"scores"`
	Recommendation scoring.Recommendation `json:"recommendation"`
	Windows        indicators.Windows     `json:"windows"`
	Warnings       []string               `json:"warnings"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// Symbol returns the normalized symbol the report covers.
func (r *Report) Symbol() string {
	return r.Series.Symbol
}

// DecodeReport parses a report previously encoded with encoding/json.
func DecodeReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
