package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"costbook/internal/chart"
	"costbook/internal/core"
	"costbook/internal/services"
)

func newSummaryCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the project total and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := rt.app.Tracker.Summary()
			out := cmd.OutOrStdout()
			if rt.json {
				return writeJSON(out, s)
			}
			fmt.Fprintf(out, "Items: %d (%s)\n", s.ItemCount, core.FormatAmount(s.ItemsTotal))
			fmt.Fprintf(out, "Costs: %d (%s)\n", s.CostCount, core.FormatAmount(s.CostsTotal))
			fmt.Fprintf(out, "Total: %s\n", core.FormatAmount(s.Total))
			return nil
		},
	}
}

func newChartCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "chart items|costs",
		Short:     "Show chart data for a collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"items", "costs"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[0])
			}
			var b chart.Bundle
			if kind == core.KindItems {
				b = rt.app.Tracker.ItemCharts()
			} else {
				b = rt.app.Tracker.CostCharts()
			}
			if rt.json {
				return writeJSON(cmd.OutOrStdout(), b)
			}
			printBundle(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func newSyncCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replace local records with the signed in user's remote copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.app.Tracker.Hydrate(cmd.Context()); err != nil {
				if errors.Is(err, services.ErrNoRemote) {
					return errors.New("sync needs a signed in user; run costbook login first")
				}
				return fmt.Errorf("sync: %w", err)
			}
			s := rt.app.Tracker.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled %d item(s) and %d cost(s)\n", s.ItemCount, s.CostCount)
			return nil
		},
	}
}
