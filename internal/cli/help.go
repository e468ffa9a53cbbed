package cli

import (
	"github.com/spf13/cobra"
)

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		Long:  "Display examples of common analysis workflows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Analyze a Stock",
					commands: []string{
						"analyst quote AAPL                  # Current price and 52-week range",
						"analyst analyze AAPL                # Full report, saved to the store",
						"analyst analyze AAPL -v             # Show every scoring condition",
						"analyst indicators AAPL             # All indicators with status",
					},
				},
				{
					title: "Hong Kong and A-Shares",
					commands: []string{
						"analyst analyze 700.HK              # Normalized to 0700.HK",
						"analyst analyze 600519.SH --pe 28 --growth 15",
						"analyst analyze 9988.HK --snapshot page.html --snippets posts.json",
					},
				},
				{
					title: "Offline Data",
					commands: []string{
						"analyst analyze MSFT --source csv --csv msft.csv",
						"analyst data AAPL --stored          # Bars already in the store",
						"analyst analyze AAPL --save=false --json > aapl.json",
					},
				},
				{
					title: "Watchlists",
					commands: []string{
						"analyst watchlist add AAPL",
						"analyst watchlist add 0700.HK asia",
						"analyst watch --once                # Analyze the default list now",
						"analyst watch --list asia --cron \"30 16 * * 1-5\"",
						"analyst history --limit 10          # Recent reports",
						"analyst report 42                   # Show a saved report",
					},
				},
			}

			for _, ex := range examples {
				output.Printf("%s\n", output.BoldText(ex.title))
				for _, c := range ex.commands {
					output.Printf("  %s\n", c)
				}
				output.Println()
			}
			return nil
		},
	}
}
