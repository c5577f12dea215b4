package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"proxeek/internal/logging"
	"proxeek/internal/scene"
	"proxeek/internal/search"
	"proxeek/internal/watch"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the optimization whenever an input document changes",
	Long: `Runs optimize once, then watches the four input documents and runs it again
after each debounced batch of changes. Load and infeasibility errors are
reported and the watcher keeps waiting for the next change. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	optFlags.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	rerun := func(ctx context.Context, changed []string) {
		if _, err := optimizeOnce(ctx, cfg, out); err != nil {
			if recoverable(err) {
				logging.Get(logging.CategoryWatch).Warn("optimization failed, waiting for the next change: %v", err)
				return
			}
			logging.Get(logging.CategoryWatch).Error("optimization failed: %v", err)
		}
	}

	rerun(ctx, nil)

	p := inputPaths(cfg)
	w, err := watch.NewInputWatcher(
		[]string{p.Annotation, p.PhysicalDatabase, p.ProxyRatings, p.RelationshipRatings},
		cfg.GetWatchDebounce(), rerun)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintln(out, "Watching inputs; press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}

// recoverable reports whether fixing the inputs can make the next run succeed.
func recoverable(err error) bool {
	return errors.Is(err, scene.ErrLoad) || errors.Is(err, search.ErrInfeasible)
}
