package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aditip149209/okview/pkg/config"
	"github.com/aditip149209/okview/pkg/daemon"
	"github.com/aditip149209/okview/pkg/logging"
)

func main() {

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg, log)
	if err != nil {
		log.Error(err, "Starting okview failed")
		os.Exit(1)
	}

	if err := d.Run(ctx); err != nil {
		log.Error(err, "okview stopped")
		os.Exit(1)
	}

}
