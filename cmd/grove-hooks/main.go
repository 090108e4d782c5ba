package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/hooks/cli"
	"github.com/grovetools/hooks/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		cli.NewErrorHandler(os.Stderr, verbose).Handle(err)
		stop()
		os.Exit(1)
	}
}
