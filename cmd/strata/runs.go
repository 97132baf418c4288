package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived runs",
	Long:  "List the runs stored in the configured archive with a one-line summary each.",
	RunE:  runRunsCmd,
}

func init() {
	rootCmd.AddCommand(runsCmd)
}

func runRunsCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := runCtx()
	defer stop()

	arch, backend, err := buildArchive()
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	ids, err := arch.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(ids) == 0 {
		fmt.Printf("No archived runs in the %s archive.\n", backend)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tKIND\tSTRATEGY\tSYMBOL\tTRADES\tPROFIT\t")
	fmt.Fprintln(w, "---\t----\t--------\t------\t------\t------\t")

	for _, id := range ids {
		if res, err := arch.LoadResult(ctx, id); err == nil {
			fmt.Fprintf(w, "%s\tbacktest\t%s\t%s\t%d\t%.2f\t\n",
				id, res.Strategy, res.Symbol, res.Stats.TotalTrades, res.Stats.TotalProfit)
			continue
		}

		if sweep, err := arch.LoadSweep(ctx, id); err == nil {
			if len(sweep.Results) == 0 {
				fmt.Fprintf(w, "%s\tsweep\t-\t-\t-\t-\t\n", id)
				continue
			}
			best := sweep.Results[0].Result
			fmt.Fprintf(w, "%s\tsweep\t%s\t%s\t%d\t%.2f\t\n",
				id, best.Strategy, best.Symbol, best.Stats.TotalTrades, best.Stats.TotalProfit)
			continue
		}

		fmt.Fprintf(w, "%s\t?\t-\t-\t-\t-\t\n", id)
	}
	w.Flush()
	return nil
}
