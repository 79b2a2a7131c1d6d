package commands

import (
	"os"

	"courseharvest/internal/harvest"
	"courseharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	probeStart    *int64
	probeMax      *int64
	probeFailures *int
)

func init() {
	probeStart = probeCmd.Flags().Int64("start", 0, "The first lesson id to probe (defaults to the course's start_lesson_id).")
	probeMax = probeCmd.Flags().Int64("max", 0, "The lesson id to stop before (defaults to start + 500).")
	probeFailures = probeCmd.Flags().Int("failures", 0, "Consecutive misses that end the course (defaults to 10).")
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe <course> [--start <id>] [--max <id>] [--failures <n>]",
	Short: "Discovers lessons by walking numeric lesson ids and prints what was found.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := setup(ctx)
		defer a.shutdown()

		target, err := a.cfg.Target(args[0])
		if err != nil {
			serviceutil.Fatal("failed to resolve course", err)
		}

		opts := probeOptions(a.cfg, *probeStart, *probeMax, *probeFailures)

		session := a.launch(ctx)
		defer session.Close()

		prober := harvest.NewProber(
			session,
			a.clock,
			a.tel,
			a.cfg.DriverOptions().NavigationTimeout,
			a.cfg.RendererOptions().SettleDelay,
		)
		lessons, err := prober.Probe(ctx, target, opts)
		harvest.WriteDiscovered(os.Stdout, lessons)
		if err != nil {
			session.Close()
			serviceutil.Fatal("probing interrupted", err)
		}
	},
}

// probeOptions applies the flags that were set over the configured options.
func probeOptions(cfg Config, startId, maxId int64, failures int) harvest.ProbeOptions {
	opts := *cfg.ProbeOptions()
	if startId > 0 {
		opts.StartId = startId
	}
	if maxId > 0 {
		opts.MaxId = maxId
	}
	if failures > 0 {
		opts.MaxConsecutiveFailures = failures
	}
	return opts
}
