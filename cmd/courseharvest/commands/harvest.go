package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"courseharvest/internal/components/telemetry"
	"courseharvest/internal/harvest"
	"courseharvest/internal/ledger"
	"courseharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	harvestOutput          *string
	harvestSkipExisting    *bool
	harvestStaticDiscovery *bool
	harvestProbe           *bool
	harvestPerfStats       *bool
)

func init() {
	harvestOutput = harvestCmd.Flags().StringP("output", "o", "", "The directory course folders are written to (overrides output_root).")
	harvestSkipExisting = harvestCmd.Flags().Bool("skip-existing", false, "Keep lessons already saved by an earlier run.")
	harvestStaticDiscovery = harvestCmd.Flags().Bool("static-discovery", false, "Find lessons in the server rendered course page instead of the browser DOM.")
	harvestProbe = harvestCmd.Flags().Bool("probe", false, "Probe lesson ids when no lessons can be located.")
	harvestPerfStats = harvestCmd.Flags().Bool("perf-stats", false, "Export cpu and memory gauges while harvesting.")
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [course...]",
	Short: "Saves every lesson of the configured courses (or only the named ones) as PDFs.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := setup(ctx)
		defer a.shutdown()

		targets, err := a.cfg.Targets(args)
		if err != nil {
			serviceutil.Fatal("failed to resolve courses", err)
		}
		if len(targets) == 0 {
			serviceutil.Fatal("nothing to harvest", errors.New("no courses configured"))
		}

		outputRoot := a.cfg.OutputRoot
		if *harvestOutput != "" {
			outputRoot = *harvestOutput
		}
		opts := a.cfg.DriverOptions()
		opts.SkipExisting = *harvestSkipExisting
		if *harvestProbe {
			opts.Probe = a.cfg.ProbeOptions()
		}

		if *harvestPerfStats {
			telemetry.InstrumentPerfStats(ctx, a.tel, 10*time.Second)
		}

		failed := harvestAll(ctx, a, targets, outputRoot, opts)
		if len(failed) > 0 {
			a.shutdown()
			serviceutil.Fatal("some courses could not be harvested", errors.Join(failed...))
		}
	},
}

// harvestAll runs each course in turn over one browser session and returns
// the courses that could not be harvested.
func harvestAll(
	ctx context.Context,
	a app,
	targets []harvest.CourseTarget,
	outputRoot string,
	opts harvest.DriverOptions,
) []error {
	var history *ledger.Ledger
	if a.cfg.Ledger != "" {
		var err error
		history, err = ledger.Open(a.cfg.Ledger, a.tel)
		if err != nil {
			serviceutil.Fatal("failed to open ledger", err)
		}
		defer history.Close()
	}

	session := a.launch(ctx)
	defer session.Close()

	var failed []error
	for i, target := range targets {
		if i > 0 {
			slog.Info("pausing between courses", "duration", a.cfg.CoursePause())
			if err := a.clock.Sleep(ctx, a.cfg.CoursePause()); err != nil {
				failed = append(failed, err)
				break
			}
		}

		var locator harvest.Locator = harvest.NewDOMLocator(harvest.DefaultLocatorOptions(), a.tel)
		var release func()
		if *harvestStaticDiscovery {
			client, r := a.storefrontClient(target.EntryUrl())
			release = r
			locator = harvest.NewStaticLocator(target.EntryUrl(), client, harvest.DefaultLocatorOptions(), a.tel)
		}

		slog.Info("harvesting course", "course", target.Name, "entry", harvest.Redact(target.EntryUrl()))
		driver := harvest.NewDriver(session, locator, a.renderer(), a.clock, a.tel, opts)
		report, err := driver.Harvest(ctx, target, outputRoot)
		if release != nil {
			release()
		}
		if report.Attempted > 0 {
			harvest.WriteReport(os.Stdout, report)
		}
		if history != nil && report.Attempted > 0 {
			id, recordErr := history.Record(context.WithoutCancel(ctx), report)
			if recordErr != nil {
				slog.Warn("failed to record run", "err", recordErr)
			} else {
				slog.Info("recorded run", "run", id)
			}
		}
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", target.Dirname(), err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	return failed
}
