package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimbusdfir/nimbus/cmd"
	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
)

func main() {
	errUtils.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A jump server must never outlive an interrupted session.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn("Interrupted, cleaning up", "signal", sig)
		cancel()
		cmd.Cleanup(context.Background())
		errUtils.Exit(128 + int(sig.(syscall.Signal)))
	}()

	if err := cmd.ExecuteContext(ctx); err != nil {
		errUtils.CheckErrorAndPrint(err)
		return errUtils.GetExitCode(err)
	}
	return 0
}
