package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aditip149209/okview/pkg/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "run a worker, a manager and the console in one process",
	Example: "OKVIEW_STORE_BACKEND=etcd okview serve",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		d, err := daemon.New(cfg, log)
		if err != nil {
			return err
		}
		return d.Run(ctx)
	},
}
