// Package analyzer assembles the analysis stages into a single report:
// normalize, compute indicators, estimate fundamentals, aggregate sentiment,
// score and synthesize.
package analyzer

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/fundamental"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/scoring"
	"stock-analyst/internal/analysis/sentiment"
	"stock-analyst/internal/analysis/series"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/models"
	"stock-analyst/pkg/utils"
)

// Input is everything known about one instrument at analysis time.
type Input struct {
	Symbol       string
	Points       []models.PricePoint
	Fundamentals *models.FundamentalSeed
	// Snippets are pre-tagged discussion items, most recent first.
	Snippets []models.Snippet
}

// Analyzer runs analyses with fixed options. It holds no per-request state
// and is safe for concurrent use.
type Analyzer struct {
	opts      Options
	engine    *indicators.Engine
	estimator *fundamental.Estimator
	scorer    *scoring.Scorer
	logger    zerolog.Logger
	now       func() time.Time
}

// New fills unset windows with defaults, validates opts and builds an
// analyzer.
func New(opts Options, logger zerolog.Logger) (*Analyzer, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		opts:      opts,
		engine:    indicators.NewStandardEngine(opts.Windows, opts.RiskFreeRate, opts.Workers),
		estimator: fundamental.NewEstimator(opts.SectorTable),
		scorer:    scoring.NewScorer(opts.Rubric, opts.Windows),
		logger:    logging.WithOperation(logger, "analyze"),
		now:       time.Now,
	}, nil
}

// Analyze runs one analysis with the given options and no logging.
func Analyze(in Input, opts Options) (*Report, error) {
	a, err := New(opts, zerolog.Nop())
	if err != nil {
		return nil, err
	}
	return a.Analyze(in)
}

// Analyze builds the report for in. It fails only when the series cannot
// be normalized; every later shortfall is recorded in the report.
func (a *Analyzer) Analyze(in Input) (*Report, error) {
	symbol := utils.NormalizeSymbol(in.Symbol)
	log := logging.WithSymbol(a.logger, symbol)

	s, err := series.Normalize(symbol, in.Points)
	if err != nil {
		log.Debug().Err(err).Int("points", len(in.Points)).Msg("Series rejected")
		return nil, err
	}

	set := a.engine.Compute(s.Points)
	est := a.estimator.Estimate(in.Fundamentals, s)
	sig := sentiment.Aggregate(in.Snippets)

	last := s.Last()
	scores := a.scorer.Score(last.Close, set, est, sig)
	rec := scoring.Synthesize(scores)

	ratio, ok := set.Get(indicators.KeyVolumeRatio)

	r := &Report{
		Series: SeriesInfo{
			Symbol:     s.Symbol,
			Market:     s.Market,
			Currency:   s.Currency,
			Points:     s.Len(),
			Start:      s.Points[0].Timestamp,
			End:        last.Timestamp,
			Dropped:    s.Dropped,
			Duplicates: s.Duplicates,
		},
		LastPrice:      last.Close,
		Indicators:     set,
		VolumeTrend:    indicators.ClassifyVolume(ratio, ok),
		Fundamental:    est,
		Sentiment:      sig,
		Scores:         scores,
		Recommendation: rec,
		Windows:        a.opts.Windows,
		GeneratedAt:    a.now().UTC(),
	}
	r.Warnings = warnings(s, set, est)

	for _, w := range r.Warnings {
		log.Debug().Msg(w)
	}
	logging.LogAnalysis(log, symbol, scores.Technical.Value, scores.Fundamental.Value, scores.Sentiment.Value, string(rec.ShortTerm))

	return r, nil
}

func warnings(s *series.Series, set indicators.Set, est fundamental.Estimate) []string {
	var out []string
	if s.Dropped > 0 {
		out = append(out, fmt.Sprintf("dropped %d invalid price records", s.Dropped))
	}
	if s.Duplicates > 0 {
		out = append(out, fmt.Sprintf("replaced %d records with duplicate timestamps", s.Duplicates))
	}
	for _, name := range set.UnavailableNames() {
		out = append(out, fmt.Sprintf("%s unavailable: %s", name, set[name].Reason))
	}
	for _, name := range set.Names() {
		v := set[name]
		if v.HasFlag(indicators.FlagReducedCoverage) {
			out = append(out, fmt.Sprintf("%s computed over reduced coverage", name))
		}
	}
	if est.Confidence != analysis.Observed {
		out = append(out, fmt.Sprintf("fundamentals estimated from %s sector defaults", est.Sector))
	}
	return append(out, est.Warnings()...)
}
