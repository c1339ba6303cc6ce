package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/aditip149209/okview/pkg/config"
	"github.com/aditip149209/okview/pkg/logging"
)

var (
	cfg config.Config
	log = logr.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "okview",
	Short: "a cluster node console",
	Long:  "okview collects host statistics from workers, keeps them in a node registry and shows them as sortable tables",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			c.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("dev") {
			c.Log.Development, _ = cmd.Flags().GetBool("dev")
		}
		l, err := logging.New(logging.Options{Level: c.Log.Level, Development: c.Log.Development})
		if err != nil {
			return err
		}
		cfg, log = c, l
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ~/.config/okview/config.toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info or error")
	rootCmd.PersistentFlags().Bool("dev", false, "human readable development logs")
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

}
