// Command cqrs-schema prints, creates and drops the Postgres schema of postgresstore.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/AntonStoeckl/cqrs-es-go/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
