// Command flowpose estimates camera motion from dense optical flow and
// exports timelapses of recorded footage.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/flowpose/internal/monitoring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp())
	if err := root.ExecuteContext(ctx); err != nil {
		monitoring.Logger().Error().Err(err).Msg("flowpose")
		stop()
		os.Exit(1)
	}
}
