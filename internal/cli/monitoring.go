package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stock-analyst/internal/pipeline"
	"stock-analyst/internal/security"
	"stock-analyst/internal/store"
	"stock-analyst/pkg/utils"
)

// addMonitoringCommands adds watchlist and scheduled analysis commands.
func addMonitoringCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newWatchlistCmd(app))
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

func newWatchCmd(app *App) *cobra.Command {
	var (
		src      sourceFlags
		schedule string
		listName string
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze a watchlist on a schedule",
		Long: `Analyze every symbol on a watchlist, then keep doing so on a cron
schedule until interrupted. Reports are saved to the local store and can be
reviewed with 'analyst history'.

The schedule uses the standard five cron fields in local time.`,
		Example: `  analyst watch --once
  analyst watch --list tech --cron "0 17 * * 1-5"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if schedule == "" {
				schedule = app.Config.Watch.Cron
			}
			if listName == "" {
				listName = app.Config.Watch.List
			}

			if _, err := app.store(); err != nil {
				return fmt.Errorf("watch needs the local store: %w", err)
			}
			p, err := app.pipeline(src, "", nil, true)
			if err != nil {
				return err
			}

			run := func(ctx context.Context) error {
				results, err := p.RunWatchlist(ctx, listName)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(batchJSON(results))
				}
				renderBatch(output, listName, results)
				return nil
			}

			if once {
				return run(cmd.Context())
			}

			log := app.Logger.With().Str("watchlist", listName).Str("cron", schedule).Logger()
			c := cron.New(cron.WithLogger(cronLogger{logger: log}))
			if _, err := c.AddFunc(schedule, func() {
				if err := run(cmd.Context()); err != nil {
					log.Error().Err(err).Msg("Scheduled watchlist run failed")
				}
			}); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			if err := run(cmd.Context()); err != nil {
				log.Error().Err(err).Msg("Initial watchlist run failed")
			}

			c.Start()
			if next := c.Entries(); len(next) > 0 && !output.IsJSON() {
				output.Info("Watching '%s'; next run %s. Press Ctrl+C to stop.", listName, next[0].Next.Format(time.RFC1123))
			}
			<-cmd.Context().Done()
			<-c.Stop().Done()
			log.Info().Msg("Watch stopped")
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().StringVar(&schedule, "cron", "", "cron schedule (default from config)")
	cmd.Flags().StringVarP(&listName, "list", "l", "", "watchlist to analyze (default from config)")
	cmd.Flags().BoolVar(&once, "once", false, "run once and exit")
	return cmd
}

type batchEntry struct {
	Symbol   string      `json:"symbol"`
	ReportID int64       `json:"report_id,omitempty"`
	Report   interface{} `json:"report,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func batchJSON(results []pipeline.Result) []batchEntry {
	out := make([]batchEntry, len(results))
	for i, r := range results {
		out[i] = batchEntry{Symbol: r.Symbol, ReportID: r.ReportID}
		if r.Report != nil {
			out[i].Report = r.Report
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

// renderBatch prints one line per symbol of a batch run.
func renderBatch(o *Output, listName string, results []pipeline.Result) {
	o.Bold("Watchlist %s (%s)", listName, time.Now().Format("2006-01-02 15:04"))
	if len(results) == 0 {
		o.Dim("  no symbols; add some with 'analyst watchlist add <symbol>'")
		return
	}
	table := NewTable(o, "Symbol", "Price", "Tech", "Fund", "Sent", "Short", "Medium", "Long")
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			table.AddRow(r.Symbol, o.Red("error"), "", "", "", "", "", o.DimText(truncate(r.Err.Error(), 40)))
			continue
		}
		rep := r.Report
		table.AddRow(
			r.Symbol,
			utils.FormatPrice(rep.Series.Currency, rep.LastPrice),
			fmt.Sprintf("%d/6", rep.Scores.Technical.Value),
			fmt.Sprintf("%d/6", rep.Scores.Fundamental.Value),
			fmt.Sprintf("%d/6", rep.Scores.Sentiment.Value),
			o.Stance(rep.Recommendation.ShortTerm),
			o.Stance(rep.Recommendation.MediumTerm),
			o.Stance(rep.Recommendation.LongTerm),
		)
	}
	table.Render()
	if failed > 0 {
		o.Warning("%d of %d symbols failed", failed, len(results))
	}
}

// watchlistArgs validates a leading symbol and an optional watchlist name
// at position nameAt.
func watchlistArgs(check cobra.PositionalArgs, nameAt int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := symbolArgs(check)(cmd, args); err != nil {
			return err
		}
		if len(args) > nameAt {
			return security.ValidateWatchlistName(args[nameAt])
		}
		return nil
	}
}

func newWatchlistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Watchlist management",
		Long:  "Add, remove, and list symbols in watchlists.",
	}

	listArg := func(args []string) string {
		if len(args) > 1 {
			return args[1]
		}
		return store.DefaultWatchlist
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <symbol> [watchlist]",
		Short: "Add symbol to watchlist",
		Long:  "Add a symbol to a watchlist. Default watchlist is 'default'.",
		Example: `  analyst watchlist add AAPL
  analyst watchlist add 700.HK asia`,
		Args: watchlistArgs(cobra.RangeArgs(1, 2), 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.store()
			if err != nil {
				return err
			}
			symbol := utils.NormalizeSymbol(args[0])
			listName := listArg(args)
			if err := st.AddToWatchlist(cmd.Context(), symbol, listName); err != nil {
				output.Error("Failed to add to watchlist: %v", err)
				return err
			}
			output.Success("✓ Added %s to watchlist '%s'", symbol, listName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <symbol> [watchlist]",
		Short: "Remove symbol from watchlist",
		Args:  watchlistArgs(cobra.RangeArgs(1, 2), 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.store()
			if err != nil {
				return err
			}
			symbol := utils.NormalizeSymbol(args[0])
			listName := listArg(args)
			if err := st.RemoveFromWatchlist(cmd.Context(), symbol, listName); err != nil {
				output.Error("Failed to remove from watchlist: %v", err)
				return err
			}
			output.Success("✓ Removed %s from watchlist '%s'", symbol, listName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list [watchlist]",
		Short: "List watchlist symbols",
		Long:  "Display all symbols in a watchlist. Shows all watchlists if none specified.",
		Args:  func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return err
			}
			if len(args) > 0 {
				return security.ValidateWatchlistName(args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.store()
			if err != nil {
				return err
			}

			if len(args) > 0 {
				listName := args[0]
				symbols, err := st.GetWatchlist(cmd.Context(), listName)
				if err != nil {
					output.Error("Failed to get watchlist: %v", err)
					return err
				}
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{
						"name":    listName,
						"symbols": symbols,
					})
				}
				output.Bold("Watchlist: %s", listName)
				output.Printf("  %d symbols\n\n", len(symbols))
				for _, s := range symbols {
					output.Printf("  • %s\n", s)
				}
				return nil
			}

			watchlists, err := st.GetAllWatchlists(cmd.Context())
			if err != nil {
				output.Error("Failed to get watchlists: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(watchlists)
			}

			names := make([]string, 0, len(watchlists))
			for name := range watchlists {
				names = append(names, name)
			}
			sort.Strings(names)

			output.Bold("Watchlists")
			output.Printf("  %d watchlists\n\n", len(watchlists))
			for _, name := range names {
				symbols := watchlists[name]
				last := "never"
				if t := st.GetLastSync("watch:" + name); !t.IsZero() {
					last = t.Format("2006-01-02 15:04")
				}
				output.Printf("  %s (%d symbols, last run %s)\n", output.BoldText(name), len(symbols), last)
				for _, s := range symbols {
					output.Printf("    • %s\n", s)
				}
				output.Println()
			}
			return nil
		},
	})

	return cmd
}
