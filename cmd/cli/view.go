package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aditip149209/okview/pkg/binding"
	"github.com/aditip149209/okview/pkg/console"
	"github.com/aditip149209/okview/pkg/render"
	"github.com/aditip149209/okview/pkg/source"
	"github.com/aditip149209/okview/pkg/table"
)

func init() {
	//register view as child of okview
	rootCmd.AddCommand(viewCmd)

	//flags
	viewCmd.Flags().StringP("server", "s", "", "console address (default from config)")
	viewCmd.Flags().String("sort", "", "column to sort by")
	viewCmd.Flags().String("dir", "asc", "sort direction: asc or desc")
	viewCmd.Flags().String("select", "", "id of the row to mark")
	viewCmd.Flags().BoolP("watch", "w", false, "keep refreshing the table")
	viewCmd.Flags().Duration("interval", 5*time.Second, "refresh interval with --watch")
}

var viewCmd = &cobra.Command{
	Use:     "view <tag>",
	Short:   "show a table served by the console",
	Example: "okview view cluster --sort cores --dir desc --watch",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o := viewOptions{Tag: args[0]}
		o.Server, _ = cmd.Flags().GetString("server")
		o.Sort, _ = cmd.Flags().GetString("sort")
		o.Dir, _ = cmd.Flags().GetString("dir")
		o.Select, _ = cmd.Flags().GetString("select")
		o.Watch, _ = cmd.Flags().GetBool("watch")
		o.Interval, _ = cmd.Flags().GetDuration("interval")
		if o.Server == "" {
			o.Server = cfg.ConsoleURL()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h := source.NewHTTP(o.Server)
		tags, err := h.Tags(ctx)
		if err != nil {
			return fmt.Errorf("contacting console %s: %w", o.Server, err)
		}
		if !slices.Contains(tags, o.Tag) {
			return &binding.UnknownResourceError{Tag: o.Tag}
		}
		return runView(ctx, cmd.OutOrStdout(), h, o)
	},
}

type viewOptions struct {
	Server   string
	Tag      string
	Sort     string
	Dir      string
	Select   string
	Watch    bool
	Interval time.Duration
}

// runView binds tag to a terminal scope. Without watch it draws once, after
// the first fetch completes.
func runView(ctx context.Context, out io.Writer, f binding.Fetcher, o viewOptions) error {
	reg := binding.NewRegistry()
	reg.Register(o.Tag, f)
	svc := binding.New(reg,
		binding.WithLogger(log.WithName("binding")),
		binding.WithFetchTimeout(cfg.Console.FetchTimeout))
	defer svc.Close()

	var bcfg binding.Config
	if o.Sort != "" {
		bcfg.DefaultSort = binding.SortState{Column: o.Sort, Dir: table.ParseSortDir(o.Dir)}
	}

	scope := binding.NewScope("terminal")
	refresh := scope.Refresh
	if o.Tag == console.ClusterTag {
		v, err := console.NewClusterView(svc, scope, log, bcfg)
		if err != nil {
			return err
		}
		defer v.Close()
		refresh = v.Refresh
	} else {
		if _, err := svc.Bind(scope, o.Tag, bcfg); err != nil {
			return err
		}
		defer svc.Unbind(scope)
	}

	term := render.NewTerminal(out)
	if !o.Watch {
		svc.Wait()
		if o.Select != "" && !scope.Select(o.Select) {
			log.Info("Row to select is not displayed", "id", o.Select)
		}
		snap := scope.Snapshot()
		if err := term.Draw(snap); err != nil {
			return err
		}
		if snap.Err != "" && snap.RowCount() == 0 {
			return errors.New(snap.Err)
		}
		return nil
	}

	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	go func() {
		t := time.NewTicker(o.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				refresh()
			}
		}
	}()
	term.Clear = true
	return term.Watch(ctx, scope)
}
