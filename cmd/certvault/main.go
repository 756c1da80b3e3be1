package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/abduss/certvault/internal/cli"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run keeps every deferred cleanup ahead of os.Exit.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl, err := cli.NewLogger(os.Getenv("CERTVAULT_DEBUG") != "")
	if err == nil {
		zap.ReplaceGlobals(zl)
		defer func() { _ = zl.Sync() }()
	}

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}
