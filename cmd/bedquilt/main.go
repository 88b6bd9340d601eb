// Command bedquilt splits Mongo-style queries into PostgreSQL jsonb
// predicates and runs them against document collections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/bedquilt/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "bedquilt:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
