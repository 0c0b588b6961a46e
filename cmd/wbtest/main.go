// Package main is the entry point for the wbtest CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/promptworkbench/wbtest/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args)
	stop()
	os.Exit(code)
}
