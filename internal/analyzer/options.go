package analyzer

import (
	"math"

	"stock-analyst/internal/analysis/fundamental"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/scoring"
	apperrors "stock-analyst/internal/errors"
)

// DefaultRiskFreeRate is the annual risk-free rate used for the Sharpe ratio.
const DefaultRiskFreeRate = 0.0

// Options tunes one analysis. Zero-valued windows and an empty rubric fall
// back to their defaults; explicitly set values are validated as given.
type Options struct {
	// RiskFreeRate is annual, as a fraction (0.02 = 2%).
	RiskFreeRate float64            `mapstructure:"risk_free_rate" json:"risk_free_rate"`
	Windows      indicators.Windows `mapstructure:"windows" json:"windows"`
	Rubric       scoring.Rubric     `mapstructure:"rubric" json:"rubric"`
	// Workers bounds the indicator pool. Zero picks a default.
	Workers int `mapstructure:"workers" json:"workers"`
	// SectorTable replaces the built-in sector multiples when set.
	SectorTable *fundamental.Table `mapstructure:"-" json:"-"`
}

// DefaultOptions returns the standard windows, rubric and risk-free rate.
func DefaultOptions() Options {
	return Options{
		RiskFreeRate: DefaultRiskFreeRate,
		Windows:      indicators.DefaultWindows(),
		Rubric:       scoring.DefaultRubric(),
		Workers:      4,
	}
}

// withDefaults fills zero-valued window fields from DefaultWindows. Rubric
// weights already default to 1 when absent.
func (o Options) withDefaults() Options {
	d := indicators.DefaultWindows()
	w := &o.Windows
	for _, f := range []struct {
		field *int
		def   int
	}{
		{&w.MAShort, d.MAShort},
		{&w.MALong, d.MALong},
		{&w.RSI, d.RSI},
		{&w.Bollinger, d.Bollinger},
		{&w.MACDFast, d.MACDFast},
		{&w.MACDSlow, d.MACDSlow},
		{&w.MACDSignal, d.MACDSignal},
		{&w.Levels, d.Levels},
		{&w.Range52W, d.Range52W},
		{&w.Volume, d.Volume},
	} {
		if *f.field == 0 {
			*f.field = f.def
		}
	}
	if w.BollingerK == 0 {
		w.BollingerK = d.BollingerK
	}
	if w.ExtraMA == nil {
		w.ExtraMA = d.ExtraMA
	}
	return o
}

// Validate checks the options before any computation runs.
func (o Options) Validate() error {
	if math.IsNaN(o.RiskFreeRate) || math.IsInf(o.RiskFreeRate, 0) || o.RiskFreeRate < 0 || o.RiskFreeRate > 1 {
		return apperrors.NewConfigurationError("risk_free_rate", o.RiskFreeRate, "must be a fraction between 0 and 1")
	}
	if o.Workers < 0 {
		return apperrors.NewConfigurationError("workers", o.Workers, "must not be negative")
	}
	if err := o.Windows.Validate(); err != nil {
		return err
	}
	return o.Rubric.Validate()
}
