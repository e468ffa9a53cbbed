// Command analyst builds technical, fundamental and sentiment reports for
// listed stocks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stock-analyst/internal/cli"
	"stock-analyst/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Configuration is loaded by the root command once --config is parsed.
	if err := cli.Execute(ctx, nil, logging.NewLogger()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
