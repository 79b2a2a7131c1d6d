package commands

import (
	"errors"
	"os"

	"courseharvest/internal/ledger"
	"courseharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	historyRun   *string
	historyLimit *int
)

func init() {
	historyRun = historyCmd.Flags().String("run", "", "Show the lessons of a single run.")
	historyLimit = historyCmd.Flags().IntP("limit", "n", 20, "The number of runs to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--run <id>] [--limit <n>]",
	Short: "Lists past harvest runs recorded in the ledger.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := setup(ctx)
		defer a.shutdown()

		if a.cfg.Ledger == "" {
			serviceutil.Fatal("no ledger configured", errors.New("set ledger in the config or COURSEHARVEST_LEDGER"))
		}
		history, err := ledger.Open(a.cfg.Ledger, a.tel)
		if err != nil {
			serviceutil.Fatal("failed to open ledger", err)
		}
		defer history.Close()

		if *historyRun != "" {
			run, outcomes, err := history.Run(ctx, *historyRun)
			if err != nil {
				serviceutil.Fatal("failed to read run", err)
			}
			ledger.WriteOutcomes(os.Stdout, run, outcomes)
			return
		}

		runs, err := history.Runs(ctx, *historyLimit)
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}
		ledger.WriteRuns(os.Stdout, runs)
	},
}
