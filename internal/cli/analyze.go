package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analyzer"
	"stock-analyst/internal/models"
	"stock-analyst/internal/notify"
	"stock-analyst/internal/pipeline"
	"stock-analyst/pkg/utils"
)

const defaultCommandTimeout = 60 * time.Second

// addAnalysisCommands adds analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newIndicatorsCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
}

// overrideFlags are user-supplied fundamentals.
type overrideFlags struct {
	pe, eps, peg, growth float64
	sector               string
}

// seed returns the overrides that were actually set on cmd.
func (o overrideFlags) seed(cmd *cobra.Command) *models.FundamentalSeed {
	seed := &models.FundamentalSeed{Sector: o.sector}
	if cmd.Flags().Changed("pe") {
		seed.PE = models.Float(o.pe)
	}
	if cmd.Flags().Changed("eps") {
		seed.EPS = models.Float(o.eps)
	}
	if cmd.Flags().Changed("peg") {
		seed.PEG = models.Float(o.peg)
	}
	// --growth is a percent; the analyzer works in fractions.
	if cmd.Flags().Changed("growth") {
		seed.GrowthRate = models.Float(o.growth / 100)
	}
	if seed.Empty() {
		return nil
	}
	return seed
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		src       sourceFlags
		overrides overrideFlags
		riskFree  float64
		save      bool
		verbose   bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Comprehensive analysis for a symbol",
		Long: `Build a full report for a symbol:
- Technical indicators (MA, RSI, MACD, Bollinger Bands, volatility,
  drawdown, Sharpe ratio, support/resistance, 52-week position, volume)
- Fundamentals (P/E, EPS, PEG, growth), reported or estimated from
  sector defaults
- Sentiment from tagged discussion snippets
- Technical, fundamental and sentiment scores out of 6
- Short, medium and long term stances

Reports are saved to the local store unless --save=false.`,
		Example: `  analyst analyze AAPL
  analyst analyze 0700.HK --pe 18.5 --growth 12
  analyst analyze 600519.SH --snapshot page.html --snippets posts.json
  analyst analyze MSFT --source csv --csv msft.csv --json`,
		Args: symbolArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			symbol := utils.NormalizeSymbol(args[0])
			var rf *float64
			if cmd.Flags().Changed("risk-free-rate") {
				rf = &riskFree
			}

			p, err := app.pipeline(src, symbol, rf, save)
			if err != nil {
				return err
			}

			if !output.IsJSON() {
				output.Info("Analyzing %s...", symbol)
			}
			res, err := p.Run(ctx, pipeline.Request{Symbol: symbol, Overrides: overrides.seed(cmd)})
			if res == nil {
				return fmt.Errorf("analysis of %s failed: %w", symbol, err)
			}
			if err != nil {
				app.Logger.Warn().Err(err).Str("symbol", symbol).Msg("Report not saved")
			}

			if output.IsJSON() {
				return output.JSON(res.Report)
			}
			output.Println()
			RenderReport(output, res.Report, verbose)
			if res.ReportID > 0 {
				output.Dim("Saved as report #%d", res.ReportID)
			}
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().Float64Var(&overrides.pe, "pe", 0, "override P/E ratio")
	cmd.Flags().Float64Var(&overrides.eps, "eps", 0, "override earnings per share")
	cmd.Flags().Float64Var(&overrides.peg, "peg", 0, "override PEG ratio")
	cmd.Flags().Float64Var(&overrides.growth, "growth", 0, "override annual growth rate in percent, e.g. 12 for 12%")
	cmd.Flags().StringVar(&overrides.sector, "sector", "", "sector used for estimates")
	cmd.Flags().Float64Var(&riskFree, "risk-free-rate", 0, "annual risk-free rate as a fraction, e.g. 0.03")
	cmd.Flags().BoolVar(&save, "save", true, "save bars and the report to the local store")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show individual scoring conditions")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultCommandTimeout, "overall timeout")

	return cmd
}

// pipeline wires sources, analyzer and store for one symbol. A store that
// cannot be opened disables persistence and stored-bar fallback.
func (a *App) pipeline(f sourceFlags, symbol string, riskFree *float64, persist bool) (*pipeline.Pipeline, error) {
	src, err := a.buildSources(f, symbol)
	if err != nil {
		return nil, err
	}
	an, err := a.analyzer(riskFree)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(a.Logger),
		pipeline.WithWorkers(a.Config.Sources.Workers),
	}
	if st, err := a.store(); err != nil {
		a.Logger.Warn().Err(err).Msg("Store unavailable, reports will not be saved")
	} else {
		opts = append(opts, pipeline.WithStore(st, persist))
	}
	if a.Config.Notify.Enabled() {
		opts = append(opts, pipeline.WithNotifier(notify.NewMultiNotifier(a.Config.Notify)))
	}
	return pipeline.New(src, an, opts...)
}

func newIndicatorsCmd(app *App) *cobra.Command {
	var (
		src     sourceFlags
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "indicators <symbol>",
		Short: "Show every technical indicator for a symbol",
		Long: `Compute the technical indicators only and list each one with its
status. Unavailable indicators show the reason, for example too few bars.`,
		Example: `  analyst indicators AAPL
  analyst indicators 0700.HK --csv tencent.csv --json`,
		Args: symbolArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			symbol := utils.NormalizeSymbol(args[0])
			sources, err := app.buildSources(src, symbol)
			if err != nil {
				return err
			}
			an, err := app.analyzer(nil)
			if err != nil {
				return err
			}

			bars, err := sources.Prices.FetchBars(ctx, symbol)
			if err != nil {
				return fmt.Errorf("failed to fetch bars for %s: %w", symbol, err)
			}
			report, err := an.Analyze(analyzer.Input{Symbol: symbol, Points: bars})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report.Indicators)
			}

			output.Bold("%s  %s  (%d bars)", symbol, utils.FormatPrice(report.Series.Currency, report.LastPrice), report.Series.Points)
			renderIndicatorSet(output, report.Indicators)
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().DurationVar(&timeout, "timeout", defaultCommandTimeout, "overall timeout")
	return cmd
}

func renderIndicatorSet(o *Output, set indicators.Set) {
	table := NewTable(o, "Indicator", "Value", "Status")
	for _, name := range set.Names() {
		v := set[name]
		status := o.Green(string(v.Status))
		switch {
		case !v.Available():
			status = o.DimText(v.Reason)
		case len(v.Flags) > 0:
			status = o.Yellow(fmt.Sprintf("%v", v.Flags))
		}
		table.AddRow(name, FormatValue(v, 4), status)
	}
	table.Render()
}

// sessionLine describes the exchange session for symbol at now.
func sessionLine(symbol string, now time.Time) string {
	ex := utils.ResolveExchange(symbol)
	status := utils.GetSessionStatus(ex, now)
	if status == utils.SessionOpen {
		return fmt.Sprintf("Session     %s open", ex.Code)
	}
	next := utils.GetNextMarketOpen(ex, now)
	return fmt.Sprintf("Session     %s %s, opens %s", ex.Code, status, next.Format("Mon 15:04 MST"))
}

func newQuoteCmd(app *App) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Show the latest quote for a symbol",
		Example: `  analyst quote AAPL
  analyst quote 600519.SH --snapshot https://example.com/quote/{symbol}`,
		Args: symbolArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()

			symbol := utils.NormalizeSymbol(args[0])
			qs, err := app.quoteSource(src)
			if err != nil {
				return err
			}
			q, err := qs.FetchQuote(ctx, symbol)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(q)
			}

			title := q.Symbol
			if q.Name != "" {
				title += "  " + q.Name
			}
			change := fmt.Sprintf("%+.2f (%s)", q.Change, utils.FormatPercent(q.ChangePercent))
			lines := []string{
				fmt.Sprintf("Price       %s  %s", utils.FormatPrice(q.Currency, q.Price), output.Signed(q.Change, change)),
				fmt.Sprintf("Day range   %s - %s", utils.FormatPrice(q.Currency, q.Low), utils.FormatPrice(q.Currency, q.High)),
				fmt.Sprintf("52W range   %s - %s", utils.FormatPrice(q.Currency, q.Low52W), utils.FormatPrice(q.Currency, q.High52W)),
				fmt.Sprintf("Volume      %s", utils.FormatCompact(q.Volume)),
			}
			if q.MarketCap > 0 {
				lines = append(lines, fmt.Sprintf("Market cap  %s", utils.FormatCompact(q.MarketCap)))
			}
			lines = append(lines, sessionLine(symbol, time.Now()))
			output.Box(title, lines)
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	return cmd
}
