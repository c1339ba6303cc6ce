package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aditip149209/okview/pkg/console"
	"github.com/aditip149209/okview/pkg/manager"
)

func init() {
	rootCmd.AddCommand(nodesCmd)

	nodesCmd.Flags().StringP("manager", "m", "", "manager address (default from config)")
	nodesCmd.Flags().String("sort", "name", "column to sort by")
	nodesCmd.Flags().String("dir", "asc", "sort direction: asc or desc")
}

var nodesCmd = &cobra.Command{
	Use:     "nodes",
	Short:   "list the nodes known to a manager",
	Example: "okview nodes --manager 10.0.0.2:5556 --sort load --dir desc",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("manager")
		if addr == "" {
			addr = fmt.Sprintf("%v:%v", cfg.Manager.Host, cfg.Manager.Port)
		}
		o := viewOptions{Tag: console.ClusterTag}
		o.Sort, _ = cmd.Flags().GetString("sort")
		o.Dir, _ = cmd.Flags().GetString("dir")
		return runView(cmd.Context(), cmd.OutOrStdout(), manager.NewClient(addr), o)
	},
}
