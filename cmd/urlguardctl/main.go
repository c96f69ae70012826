package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"urlguard/internal/app/version"
	"urlguard/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRoot(version.Get().Version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
