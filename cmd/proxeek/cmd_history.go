package main

import (
	"context"
	"fmt"
	"sort"

	"proxeek/internal/report"
	"proxeek/internal/store"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyUsage bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded optimization runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runHistory(cmd *cobra.Command, args []string) error {
	rs, err := store.NewRunStore(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer rs.Close()

	ctx := context.Background()
	runs, err := rs.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := report.DetectStyles()
	if len(runs) == 0 {
		fmt.Fprintln(out, styles.Muted.Render("No recorded runs in "+rs.Path()))
		return nil
	}

	table := report.NewTable("Recorded runs", "Run", "Created", "Total loss", "Strategy", "Virtual", "Physical", "Exclusive", "Source")
	for _, r := range runs {
		strategy := r.Strategy
		if r.Truncated {
			strategy += " (truncated)"
		}
		table.AddRow(
			r.RunID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.4f", r.TotalLoss),
			strategy,
			fmt.Sprintf("%d", r.NumVirtual),
			fmt.Sprintf("%d", r.NumPhysical),
			fmt.Sprintf("%v", r.Exclusivity),
			r.Source,
		)
	}
	fmt.Fprint(out, table.View(styles))

	if historyUsage {
		usage, err := rs.ProxyUsage(ctx)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(usage))
		for name := range usage {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if usage[names[i]] != usage[names[j]] {
				return usage[names[i]] > usage[names[j]]
			}
			return names[i] < names[j]
		})
		ut := report.NewTable("Proxy usage", "Physical object", "Runs")
		for _, name := range names {
			ut.AddRow(name, fmt.Sprintf("%d", usage[name]))
		}
		fmt.Fprint(out, "\n"+ut.View(styles))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	rs, err := store.NewRunStore(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer rs.Close()

	doc, err := rs.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Render(doc, report.DetectStyles()))
	return nil
}
