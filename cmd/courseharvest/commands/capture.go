package commands

import (
	"log/slog"

	"courseharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	captureOutput *string
	captureName   *string
)

func init() {
	captureOutput = captureCmd.Flags().StringP("output", "o", "captures", "The directory the capture is written to.")
	captureName = captureCmd.Flags().String("name", "page", "The base name of the written files.")
	rootCmd.AddCommand(captureCmd)
}

var captureCmd = &cobra.Command{
	Use:   "capture <course|url> [--output <dir>] [--name <name>]",
	Short: "Saves a screenshot, the rendered html and a markdown copy of a page.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := setup(ctx)
		defer a.shutdown()

		target, err := a.cfg.Target(args[0])
		if err != nil {
			serviceutil.Fatal("failed to resolve page", err)
		}

		session := a.launch(ctx)
		defer session.Close()

		result, err := a.renderer().Capture(
			ctx,
			session,
			target.EntryUrl(),
			a.cfg.DriverOptions().NavigationTimeout,
			*captureOutput,
			*captureName,
		)
		if err != nil {
			session.Close()
			serviceutil.Fatal("failed to capture page", err)
		}
		slog.Info(
			"captured page",
			"screenshot", result.Screenshot,
			"html", result.Html,
			"markdown", result.Markdown,
		)
	},
}
