package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/models"
	"stock-analyst/internal/store"
	"stock-analyst/pkg/utils"
)

// addDataCommands adds price history and stored report commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newDataCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newReportCmd(app))
}

func newDataCmd(app *App) *cobra.Command {
	var (
		src    sourceFlags
		limit  int
		stored bool
		maxAge time.Duration
	)

	cmd := &cobra.Command{
		Use:   "data <symbol>",
		Short: "Get daily OHLCV bars",
		Long: `Fetch daily OHLCV (Open, High, Low, Close, Volume) bars for a symbol and
save them to the local store. With --stored, read only what the store holds.`,
		Example: `  analyst data AAPL --limit 10
  analyst data 0700.HK --stored
  analyst data MSFT --csv msft.csv`,
		Args: symbolArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()

			symbol := utils.NormalizeSymbol(args[0])
			st, err := app.store()
			if err != nil {
				return err
			}

			var bars []models.PricePoint
			fresh, err := store.CheckFreshness(ctx, st, symbol, maxAge, time.Now())
			if err != nil {
				return err
			}
			if stored || fresh.IsFresh {
				bars, err = st.GetBars(ctx, symbol, time.Time{}, time.Time{})
				if err != nil {
					return err
				}
				app.Logger.Debug().Str("symbol", symbol).Dur("age", fresh.Age).Int("bars", len(bars)).Msg("Using stored bars")
			} else {
				sources, err := app.buildSources(src, symbol)
				if err != nil {
					return err
				}
				bars, err = sources.Prices.FetchBars(ctx, symbol)
				if err != nil {
					output.Error("Failed to fetch bars: %v", err)
					return err
				}
				if err := st.SaveBars(ctx, symbol, bars); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to store bars")
				}
			}

			if limit > 0 && len(bars) > limit {
				bars = bars[len(bars)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol": symbol,
					"count":  len(bars),
					"bars":   bars,
				})
			}
			displayBars(output, symbol, bars)
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of most recent bars to display (0 for all)")
	cmd.Flags().BoolVar(&stored, "stored", false, "read bars from the local store only")
	cmd.Flags().DurationVar(&maxAge, "max-age", 12*time.Hour, "reuse stored bars fetched within this age")
	return cmd
}

func displayBars(output *Output, symbol string, bars []models.PricePoint) {
	currency := utils.ResolveExchange(symbol).Currency
	output.Bold("%s - daily", symbol)
	output.Printf("  %d bars\n\n", len(bars))

	table := NewTable(output, "Date", "Open", "High", "Low", "Close", "Volume", "Change")
	for i, b := range bars {
		change := "-"
		if i > 0 && bars[i-1].Close != 0 {
			pct := (b.Close - bars[i-1].Close) / bars[i-1].Close * 100
			change = output.Signed(pct, utils.FormatPercent(pct))
		}
		table.AddRow(
			b.Timestamp.Format("2006-01-02"),
			utils.FormatPrice(currency, b.Open),
			utils.FormatPrice(currency, b.High),
			utils.FormatPrice(currency, b.Low),
			utils.FormatPrice(currency, b.Close),
			utils.FormatCompact(b.Volume),
			change,
		)
	}
	table.Render()
}

// reportSummary is the JSON view of a stored report row.
type reportSummary struct {
	ID          int64           `json:"id"`
	Symbol      string          `json:"symbol"`
	GeneratedAt time.Time       `json:"generated_at"`
	Technical   int             `json:"technical"`
	Fundamental int             `json:"fundamental"`
	Sentiment   int             `json:"sentiment"`
	ShortTerm   analysis.Stance `json:"short_term"`
	MediumTerm  analysis.Stance `json:"medium_term"`
	LongTerm    analysis.Stance `json:"long_term"`
}

func newHistoryCmd(app *App) *cobra.Command {
	var (
		limit int
		since time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history [symbol]",
		Short: "List saved reports",
		Long:  "List saved reports, newest first. Without a symbol, reports for every symbol are listed.",
		Example: `  analyst history
  analyst history AAPL --limit 5
  analyst history 0700.HK --since 720h`,
		Args: symbolArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.store()
			if err != nil {
				return err
			}

			filter := store.ReportFilter{Limit: limit}
			if len(args) > 0 {
				filter.Symbol = utils.NormalizeSymbol(args[0])
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			records, err := st.GetReports(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				out := make([]reportSummary, len(records))
				for i, r := range records {
					out[i] = reportSummary{
						ID:          r.ID,
						Symbol:      r.Symbol,
						GeneratedAt: r.GeneratedAt,
						Technical:   r.Technical,
						Fundamental: r.Fundamental,
						Sentiment:   r.Sentiment,
						ShortTerm:   r.ShortTerm,
						MediumTerm:  r.MediumTerm,
						LongTerm:    r.LongTerm,
					}
				}
				return output.JSON(out)
			}

			if len(records) == 0 {
				output.Dim("No saved reports")
				return nil
			}
			table := NewTable(output, "ID", "Symbol", "Generated", "T", "F", "S", "Short", "Medium", "Long")
			for _, r := range records {
				table.AddRow(
					strconv.FormatInt(r.ID, 10),
					r.Symbol,
					r.GeneratedAt.Local().Format("2006-01-02 15:04"),
					strconv.Itoa(r.Technical),
					strconv.Itoa(r.Fundamental),
					strconv.Itoa(r.Sentiment),
					output.Stance(r.ShortTerm),
					output.Stance(r.MediumTerm),
					output.Stance(r.LongTerm),
				)
			}
			table.Render()
			output.Println()
			output.Dim("Show one with 'analyst report <id>'")
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of reports")
	cmd.Flags().DurationVar(&since, "since", 0, "only reports newer than this age")
	return cmd
}

func newReportCmd(app *App) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "report <id>",
		Short: "Show a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid report id %q", args[0])
			}
			st, err := app.store()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			rec, err := st.GetReportByID(ctx, id)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rec.Report)
			}
			output.Dim("Report #%d", rec.ID)
			RenderReport(output, rec.Report, verbose)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show individual scoring conditions")
	return cmd
}
