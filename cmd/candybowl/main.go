package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"candybowl/internal/channels/cli"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
