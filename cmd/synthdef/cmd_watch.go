package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dd0wney/synthgraph/pkg/graphspec"
	"github.com/dd0wney/synthgraph/pkg/library"
	"github.com/dd0wney/synthgraph/pkg/logging"
	"github.com/dd0wney/synthgraph/pkg/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [directory]",
		Short: "Recompile descriptions into the library whenever they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := watch.New(args[0], func(paths []string) {
				rebuild(a, lib, paths)
			}, watch.Options{
				Debounce: a.cfg.Watch.Debounce,
				Filter:   graphspec.IsDescription,
				Logger:   a.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to watch %s: %w", args[0], err)
			}

			fmt.Fprintf(a.out, "watching %s (library %s)\n", args[0], lib.Dir())
			return w.Run(ctx)
		},
	}
}

// rebuild compiles each changed description into the library. Failures are
// reported and do not stop the watch.
func rebuild(a *app, lib *library.Library, paths []string) {
	for _, path := range paths {
		g, err := a.compileFile(path)
		if err != nil {
			a.logger.Warn("compile failed", logging.Path(path), logging.Error(err))
			fmt.Fprintf(a.out, "%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
			continue
		}
		stored, err := lib.Save(g)
		if err != nil {
			a.logger.Warn("store failed", logging.Path(path), logging.Error(err))
			fmt.Fprintf(a.out, "%s %s: %v\n", errorStyle.Render("FAIL"), path, err)
			continue
		}
		fmt.Fprintf(a.out, "%s %s -> %s\n", successStyle.Render("stored"), path, stored)
	}
}
