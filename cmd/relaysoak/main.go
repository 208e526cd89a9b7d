// Command relaysoak pushes a stream of events through a relay with a slow
// consumer and checks that each event was seen exactly once.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand(viper.New()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "relaysoak:", err)
		stop()
		os.Exit(1)
	}
}
