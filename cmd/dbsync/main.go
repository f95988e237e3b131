package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/garnizeh/dbsync/internal/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(&cli.RootOptions{Version: version, BuildTime: buildTime})
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
