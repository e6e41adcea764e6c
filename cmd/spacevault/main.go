package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/absfs/spacevault/internal/cli"
	"github.com/absfs/spacevault/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error.Sprint("✗")+" "+err.Error())
		stop()
		os.Exit(1)
	}
}
