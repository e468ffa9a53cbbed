package cli

import (
	"fmt"
	"strings"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/fundamental"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/scoring"
	"stock-analyst/internal/analyzer"
	"stock-analyst/pkg/utils"
)

// scoreSlots is the width of a rendered score bar.
const scoreSlots = scoring.MaxScore

// maxHighlights bounds the snippets printed under sentiment.
const maxHighlights = 5

// FormatValue renders an indicator value with the given precision, or
// "N/A" when it is unavailable.
func FormatValue(v indicators.Value, decimals int) string {
	if !v.Available() {
		return "N/A"
	}
	s := fmt.Sprintf("%.*f", decimals, v.Value)
	if v.HasFlag(indicators.FlagReducedCoverage) || v.HasFlag(indicators.FlagPivotFallback) {
		s += "*"
	}
	return s
}

// FormatMetric renders an estimated fundamental with its provenance. Percent
// metrics are fractions and print as percentages.
func FormatMetric(m fundamental.Metric, percent bool) string {
	if !m.Available() {
		return "N/A"
	}
	var s string
	if percent {
		s = fmt.Sprintf("%.1f%%", m.Value*100)
	} else {
		s = fmt.Sprintf("%.2f", m.Value)
	}
	if m.Provenance == analysis.Estimated {
		s += " (est.)"
	}
	return s
}

// ScoreLine renders one family score, e.g. "Technical    ████░░ 4/6 BULLISH".
func ScoreLine(o *Output, name string, s scoring.Score) string {
	return fmt.Sprintf("%-12s %s %d/%d %s", name, utils.ScoreBar(float64(s.Value), scoreSlots), s.Value, scoring.MaxScore, o.Label(s.Label))
}

// RenderReport prints a report as human-readable sections.
func RenderReport(o *Output, r *analyzer.Report, verbose bool) {
	info := r.Series
	cur := info.Currency

	o.Bold("%s  %s", info.Symbol, utils.FormatPrice(cur, r.LastPrice))
	o.Dim("%s market, %d bars %s to %s, generated %s", info.Market, info.Points,
		info.Start.Format("2006-01-02"), info.End.Format("2006-01-02"), r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	o.Println()

	renderTechnical(o, r)
	renderFundamental(o, r)
	renderSentiment(o, r)
	renderScores(o, r, verbose)

	o.Box("Recommendation", []string{
		fmt.Sprintf("Short term   %s", o.Stance(r.Recommendation.ShortTerm)),
		fmt.Sprintf("Medium term  %s", o.Stance(r.Recommendation.MediumTerm)),
		fmt.Sprintf("Long term    %s", o.Stance(r.Recommendation.LongTerm)),
	})

	if len(r.Warnings) > 0 {
		o.Println()
		o.Warning("Warnings")
		for _, w := range r.Warnings {
			o.Printf("  - %s\n", w)
		}
	}
	o.Println()
	o.Dim("* reduced coverage or fallback value. Not investment advice.")
}

func renderTechnical(o *Output, r *analyzer.Report) {
	set := r.Indicators
	w := r.Windows

	o.Bold("Technical")
	table := NewTable(o, "Indicator", "Value", "Indicator", "Value")
	mas := append([]int{w.MAShort, w.MALong}, w.ExtraMA...)
	for i := 0; i < len(mas); i += 2 {
		left := indicators.MAKey(mas[i])
		row := []string{left, FormatValue(set.Lookup(left), 2), "", ""}
		if i+1 < len(mas) {
			right := indicators.MAKey(mas[i+1])
			row[2], row[3] = right, FormatValue(set.Lookup(right), 2)
		}
		table.AddRow(row...)
	}
	table.AddRow(indicators.RSIKey(w.RSI), FormatValue(set.Lookup(indicators.RSIKey(w.RSI)), 2),
		"Volatility %", FormatValue(set.Lookup(indicators.KeyVolatility), 2))
	table.AddRow("MACD", FormatValue(set.Lookup(indicators.KeyMACD), 3),
		"Signal / Hist", FormatValue(set.Lookup(indicators.KeyMACDSignal), 3)+" / "+FormatValue(set.Lookup(indicators.KeyMACDHist), 3))
	table.AddRow("BB upper", FormatValue(set.Lookup(indicators.KeyBBUpper), 2),
		"BB lower", FormatValue(set.Lookup(indicators.KeyBBLower), 2))
	table.AddRow("Support", FormatValue(set.Lookup(indicators.KeySupport1), 2)+" / "+FormatValue(set.Lookup(indicators.KeySupport2), 2),
		"Resistance", FormatValue(set.Lookup(indicators.KeyResistance1), 2)+" / "+FormatValue(set.Lookup(indicators.KeyResistance2), 2))
	table.AddRow("52W position %", FormatValue(set.Lookup(indicators.KeyPosition52W), 1),
		"52W range", FormatValue(set.Lookup(indicators.KeyLow52W), 2)+" - "+FormatValue(set.Lookup(indicators.KeyHigh52W), 2))
	table.AddRow("Max drawdown %", FormatValue(set.Lookup(indicators.KeyMaxDrawdown), 2),
		"Sharpe", FormatValue(set.Lookup(indicators.KeySharpe), 2))
	table.AddRow("Volume ratio", FormatValue(set.Lookup(indicators.KeyVolumeRatio), 2),
		"Volume trend", string(r.VolumeTrend))
	table.Render()
	o.Println()
}

func renderFundamental(o *Output, r *analyzer.Report) {
	f := r.Fundamental
	o.Bold("Fundamental (%s, %s)", f.Sector, f.Confidence)
	table := NewTable(o, "Metric", "Value", "Metric", "Value")
	table.AddRow("P/E", FormatMetric(f.PE, false), "EPS", FormatMetric(f.EPS, false))
	table.AddRow("PEG", FormatMetric(f.PEG, false), "Growth", FormatMetric(f.GrowthRate, true))
	table.AddRow("Trailing return", o.Signed(f.TrailingReturnPct, utils.FormatPercent(f.TrailingReturnPct)),
		"Trend 5/20", fmt.Sprintf("%s / %s", f.ShortTrend, f.MediumTrend))
	table.AddRow("vs 30D high", utils.FormatPercent(f.VsHigh30Pct), "vs 30D low", utils.FormatPercent(f.VsLow30Pct))
	table.Render()
	o.Println()
}

func renderSentiment(o *Output, r *analyzer.Report) {
	s := r.Sentiment
	o.Bold("Sentiment")
	if s.Total() == 0 {
		o.Dim("  no discussion snippets")
		o.Println()
		return
	}
	o.Printf("  %s bullish  %s bearish  %d neutral  net %s\n",
		o.Green(fmt.Sprintf("%d", s.BullishCount)), o.Red(fmt.Sprintf("%d", s.BearishCount)),
		s.NeutralCount, o.Signed(s.NetScore, fmt.Sprintf("%+.2f", s.NetScore)))
	for i, h := range s.Highlights {
		if i == maxHighlights {
			break
		}
		o.Printf("  [%s] %s\n", h.Tag, truncate(h.Text, 90))
	}
	o.Println()
}

func renderScores(o *Output, r *analyzer.Report, verbose bool) {
	o.Bold("Scores")
	families := []struct {
		name  string
		score scoring.Score
	}{
		{"Technical", r.Scores.Technical},
		{"Fundamental", r.Scores.Fundamental},
		{"Sentiment", r.Scores.Sentiment},
	}
	for _, f := range families {
		o.Printf("  %s\n", ScoreLine(o, f.name, f.score))
		if !verbose {
			continue
		}
		for _, c := range f.score.Conditions {
			mark := o.Red("✗")
			switch {
			case !c.Available:
				mark = o.DimText("-")
			case c.Met:
				mark = o.Green("✓")
			}
			note := ""
			if c.Reduced {
				note = o.DimText(" short history")
			}
			o.Printf("      %s %s (weight %d)%s\n", mark, c.Name, c.Weight, note)
		}
	}
	o.Println()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}
