package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// Register pipeline stages
	_ "github.com/jengzang/resilient-routing/internal/analysis/stages"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
