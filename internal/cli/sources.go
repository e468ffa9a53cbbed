package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/pipeline"
	"stock-analyst/internal/security"
	"stock-analyst/internal/sources"
	"stock-analyst/internal/sources/csvfile"
	"stock-analyst/internal/sources/snapshot"
	"stock-analyst/internal/sources/yahoo"
	"stock-analyst/pkg/utils"
)

// sourceFlags selects the adapters for one command.
type sourceFlags struct {
	source   string
	csv      string
	snapshot string
	snippets string
}

func addSourceFlags(cmd *cobra.Command, f *sourceFlags) {
	cmd.Flags().StringVarP(&f.source, "source", "s", "", "data source: yahoo, csv or snapshot (default from config)")
	cmd.Flags().StringVar(&f.csv, "csv", "", "CSV file with daily bars")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "quote page file or URL for fundamentals and sentiment")
	cmd.Flags().StringVar(&f.snippets, "snippets", "", "JSON file of tagged discussion snippets")
}

func (a *App) yahooClient() *yahoo.Client {
	yc := a.Config.Sources.Yahoo
	return yahoo.NewClient(
		yahoo.WithBaseURL(yc.BaseURL),
		yahoo.WithHTTPClient(&http.Client{Timeout: yc.Timeout}),
		yahoo.WithRateLimit(yc.RateLimit),
		yahoo.WithRange(yc.Range),
		yahoo.WithBreaker(yc.Breaker),
		yahoo.WithCache(a.cache(), a.Config.CachePolicy()),
		yahoo.WithLogger(a.Logger),
	)
}

func (a *App) snapshotSource(location string) *snapshot.Source {
	return snapshot.New(location,
		snapshot.WithHTTPClient(&http.Client{Timeout: a.Config.Sources.Yahoo.Timeout}),
		snapshot.WithCache(a.cache(), a.Config.CachePolicy()),
		snapshot.WithLogger(logging.WithSource(a.Logger, sources.NameSnapshot)),
	)
}

// buildSources wires the adapters named by f. A CSV file always supplies
// the bars when given; a snapshot page adds fundamentals and sentiment; a
// snippets file replaces any other sentiment.
func (a *App) buildSources(f sourceFlags, symbol string) (pipeline.Sources, error) {
	name := f.source
	if name == "" {
		name = a.Config.Sources.Default
	}

	var src pipeline.Sources
	var fundamentals sources.Fundamentals
	snapLoc := f.snapshot

	switch name {
	case sources.NameYahoo:
		yc := a.yahooClient()
		src.Prices = yc
		fundamentals = append(fundamentals, yc)
	case sources.NameCSV:
		if f.csv == "" {
			return src, apperrors.NewConfigurationError("csv", "", "the csv source needs --csv <file>")
		}
	case sources.NameSnapshot:
		if snapLoc == "" {
			snapLoc = a.Config.Sources.Snapshot.URL
		}
		if snapLoc == "" {
			return src, apperrors.NewConfigurationError("sources.snapshot.url", "", "the snapshot source needs --snapshot or a configured URL")
		}
		if f.csv == "" {
			src.Prices = a.yahooClient()
		}
	default:
		return src, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedSource, name)
	}

	if f.csv != "" {
		src.Prices = csvfile.New(f.csv, utils.ResolveExchange(symbol).Location)
	}
	if snapLoc != "" {
		snap := a.snapshotSource(snapLoc)
		// Reported values from the page win over the API's.
		fundamentals = append(sources.Fundamentals{snap}, fundamentals...)
		src.Sentiment = snap
	}
	if f.snippets != "" {
		src.Sentiment = sources.NewSnippetFile(f.snippets)
	}
	if len(fundamentals) > 0 {
		src.Fundamentals = fundamentals
	}
	return src, nil
}

// quoteSource picks the adapter that answers quote requests.
func (a *App) quoteSource(f sourceFlags) (sources.QuoteSource, error) {
	name := f.source
	if name == "" {
		name = a.Config.Sources.Default
	}
	if f.snapshot != "" || name == sources.NameSnapshot {
		loc := f.snapshot
		if loc == "" {
			loc = a.Config.Sources.Snapshot.URL
		}
		if loc == "" {
			return nil, apperrors.NewConfigurationError("sources.snapshot.url", "", "the snapshot source needs --snapshot or a configured URL")
		}
		return a.snapshotSource(loc), nil
	}
	if name == sources.NameCSV {
		return nil, fmt.Errorf("%w: csv files carry no quotes", apperrors.ErrUnsupportedSource)
	}
	return a.yahooClient(), nil
}
