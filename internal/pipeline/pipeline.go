// Package pipeline fetches data for a symbol from the configured sources,
// runs the analyzer and persists the result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"stock-analyst/internal/analyzer"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/models"
	"stock-analyst/internal/notify"
	"stock-analyst/internal/sources"
	"stock-analyst/internal/store"
	"stock-analyst/pkg/utils"
)

// DefaultWorkers bounds concurrent analyses in a batch.
const DefaultWorkers = 4

// Sources are the adapters a pipeline reads from. Only Prices is required.
type Sources struct {
	Prices       sources.PriceSource
	Fundamentals sources.FundamentalSource
	Sentiment    sources.SentimentSource
}

// Request asks for one analysis.
type Request struct {
	Symbol string
	// Overrides win over fetched fundamentals, field by field.
	Overrides *models.FundamentalSeed
	// Snippets are used instead of the sentiment source when non-nil.
	Snippets []models.Snippet
}

// Result is the outcome of one request.
type Result struct {
	Symbol   string
	Report   *analyzer.Report
	ReportID int64
	Err      error
}

// Pipeline runs requests. It is safe for concurrent use.
type Pipeline struct {
	sources  Sources
	analyzer *analyzer.Analyzer
	store    store.DataStore
	persist  bool
	workers  int
	notifier notify.Notifier
	logger   zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore sets the store used for stored-bar fallback and, when persist
// is true, for saving bars and reports.
func WithStore(s store.DataStore, persist bool) Option {
	return func(p *Pipeline) {
		p.store = s
		p.persist = persist
	}
}

// WithWorkers bounds batch concurrency.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithNotifier sends an alert when a persisted report's stances differ from
// the previous report for the same symbol, and when watchlist symbols fail.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logging.WithOperation(logger, "pipeline")
	}
}

// New creates a pipeline.
func New(src Sources, a *analyzer.Analyzer, opts ...Option) (*Pipeline, error) {
	if src.Prices == nil {
		return nil, fmt.Errorf("pipeline: a price source is required")
	}
	if a == nil {
		return nil, fmt.Errorf("pipeline: an analyzer is required")
	}
	p := &Pipeline{
		sources:  src,
		analyzer: a,
		workers:  DefaultWorkers,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run fetches, analyzes and optionally persists one symbol. Only a missing
// price history is fatal; fundamentals and sentiment failures become report
// warnings.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	symbol := utils.NormalizeSymbol(req.Symbol)
	log := logging.WithSymbol(p.logger, symbol)
	start := time.Now()
	var warnings []string

	bars, note, err := p.bars(ctx, symbol)
	if err != nil {
		log.Error().Err(err).Msg("No price history")
		return nil, err
	}
	if note != "" {
		warnings = append(warnings, note)
	}

	seed := req.Overrides
	if p.sources.Fundamentals != nil {
		fetched, err := p.sources.Fundamentals.FetchFundamentals(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Msg("Fundamentals unavailable")
			warnings = append(warnings, fmt.Sprintf("fundamentals source failed: %v", err))
		}
		seed = seed.Merge(fetched)
	}

	snippets := req.Snippets
	if snippets == nil && p.sources.Sentiment != nil {
		snippets, err = p.sources.Sentiment.FetchSnippets(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Msg("Sentiment unavailable")
			warnings = append(warnings, fmt.Sprintf("sentiment source failed: %v", err))
		}
	}

	report, err := p.analyzer.Analyze(analyzer.Input{
		Symbol:       symbol,
		Points:       bars,
		Fundamentals: seed,
		Snippets:     snippets,
	})
	if err != nil {
		return nil, err
	}
	report.Warnings = append(report.Warnings, warnings...)

	res := &Result{Symbol: symbol, Report: report}
	if p.store != nil && p.persist {
		if err := p.store.SaveBars(ctx, symbol, bars); err != nil {
			log.Warn().Err(err).Msg("Failed to store bars")
		}
		prev := p.previous(ctx, symbol)
		id, err := p.store.SaveReport(ctx, report)
		if err != nil {
			return res, fmt.Errorf("failed to save report: %w", err)
		}
		res.ReportID = id
		p.notifyChange(ctx, prev, report)
	}

	log.Info().
		Int("points", report.Series.Points).
		Str("short_term", string(report.Recommendation.ShortTerm)).
		Dur("duration", time.Since(start)).
		Msg("Analysis pipeline completed")
	return res, nil
}

// previous returns the latest stored report for symbol, or nil.
func (p *Pipeline) previous(ctx context.Context, symbol string) *store.ReportRecord {
	if p.notifier == nil {
		return nil
	}
	recs, err := p.store.GetReports(ctx, store.ReportFilter{Symbol: symbol, Limit: 1})
	if err != nil || len(recs) == 0 {
		return nil
	}
	return &recs[0]
}

func (p *Pipeline) notifyChange(ctx context.Context, prev *store.ReportRecord, report *analyzer.Report) {
	if prev == nil {
		return
	}
	rec := report.Recommendation
	n, changed := notify.StanceChange(report.Series.Symbol,
		notify.Horizons{Short: prev.ShortTerm, Medium: prev.MediumTerm, Long: prev.LongTerm},
		notify.Horizons{Short: rec.ShortTerm, Medium: rec.MediumTerm, Long: rec.LongTerm},
		report.LastPrice)
	if !changed {
		return
	}
	if err := p.notifier.Send(ctx, n); err != nil {
		p.logger.Warn().Err(err).Str("symbol", report.Series.Symbol).Msg("Failed to send notification")
	}
}

// bars fetches price history, falling back to stored bars when the source
// fails. The returned note is non-empty when the fallback was used.
func (p *Pipeline) bars(ctx context.Context, symbol string) ([]models.PricePoint, string, error) {
	bars, err := p.sources.Prices.FetchBars(ctx, symbol)
	if err == nil {
		return bars, "", nil
	}
	if p.store == nil {
		return nil, "", err
	}

	stored, serr := p.store.GetBars(ctx, symbol, time.Time{}, time.Time{})
	if serr != nil || len(stored) == 0 {
		return nil, "", fmt.Errorf("failed to fetch bars and no stored bars available: %w", err)
	}
	last, _ := p.store.GetBarsFreshness(ctx, symbol)
	note := fmt.Sprintf("price source failed (%v); using %d stored bars fetched %s",
		err, len(stored), last.Format(time.RFC3339))
	p.logger.Warn().Err(err).Str("symbol", symbol).Int("bars", len(stored)).Msg("Using stored bars")
	return stored, note, nil
}

// Batch runs requests on a bounded pool. Results keep the order of reqs;
// a failed request is reported in its Result and does not stop the others.
func (p *Pipeline) Batch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	wp := pool.New().WithMaxGoroutines(p.workers)
	for i, req := range reqs {
		i, req := i, req
		wp.Go(func() {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Symbol: utils.NormalizeSymbol(req.Symbol), Err: err}
				return
			}
			res, err := p.Run(ctx, req)
			if res == nil {
				res = &Result{Symbol: utils.NormalizeSymbol(req.Symbol)}
			}
			res.Err = err
			results[i] = *res
		})
	}
	wp.Wait()
	return results
}

// RunWatchlist analyzes every symbol on a stored watchlist and records the
// run time under "watch:<list>".
func (p *Pipeline) RunWatchlist(ctx context.Context, listName string) ([]Result, error) {
	if p.store == nil {
		return nil, fmt.Errorf("pipeline: watchlists need a store")
	}
	if listName == "" {
		listName = store.DefaultWatchlist
	}
	symbols, err := p.store.GetWatchlist(ctx, listName)
	if err != nil {
		return nil, err
	}

	reqs := make([]Request, len(symbols))
	for i, s := range symbols {
		reqs[i] = Request{Symbol: s}
	}
	results := p.Batch(ctx, reqs)

	failed := make(map[string]error)
	for _, r := range results {
		if r.Err != nil {
			failed[r.Symbol] = r.Err
		}
	}
	if len(failed) > 0 && p.notifier != nil {
		if err := p.notifier.Send(ctx, notify.Failures(listName, failed)); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to send notification")
		}
	}
	if err := p.store.SetLastSync("watch:"+listName, time.Now()); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to record watch run")
	}
	p.logger.Info().
		Str("watchlist", listName).
		Int("symbols", len(symbols)).
		Int("failed", len(failed)).
		Msg("Watchlist run completed")
	return results, nil
}
