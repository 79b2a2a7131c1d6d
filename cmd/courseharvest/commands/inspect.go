package commands

import (
	"fmt"
	"log/slog"
	"os"

	"courseharvest/internal/harvest"
	"courseharvest/lib/serviceutil"
	"courseharvest/pkg/htmlutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var inspectStatic *bool

func init() {
	inspectStatic = inspectCmd.Flags().Bool("static", false, "Read the server rendered html instead of the browser DOM.")
	rootCmd.AddCommand(inspectCmd)
}

func writeAnchors(title string, anchors []htmlutil.Anchor) {
	t := harvest.NewTable(os.Stdout)
	t.SetTitle(fmt.Sprintf("%s (%d)", title, len(anchors)))
	t.AppendHeader(table.Row{"#", "Text", "Href"})
	for i, a := range anchors {
		t.AppendRow(table.Row{i, a.Name, harvest.Redact(a.Href)})
	}
	t.Render()
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <course|url> [--static]",
	Short: "Prints every link of a course page and the lessons that would be harvested from it.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := setup(ctx)
		defer a.shutdown()

		target, err := a.cfg.Target(args[0])
		if err != nil {
			serviceutil.Fatal("failed to resolve course", err)
		}
		entry := target.EntryUrl()

		var direct, nav []htmlutil.Anchor
		var headings []string
		if *inspectStatic {
			client, release := a.storefrontClient(entry)
			defer release()
			page, err := client.Fetch(ctx, entry)
			if err != nil {
				release()
				serviceutil.Fatal("failed to fetch course page", err)
			}
			direct, nav, headings = page.Anchors, page.NavAnchors, page.Headings
		} else {
			session := a.launch(ctx)
			defer session.Close()

			status, err := session.Load(ctx, entry, a.cfg.DriverOptions().NavigationTimeout)
			if err != nil {
				session.Close()
				serviceutil.Fatal("failed to load course page", err)
			}
			slog.Info("loaded course page", "status", status)
			err = a.renderer().Settle(ctx, session)
			if err != nil {
				session.Close()
				serviceutil.Fatal("interrupted", err)
			}
			title, err := harvest.ReadTitle(ctx, session)
			if err == nil && title != "" {
				headings = []string{title}
			}
			locator := harvest.NewDOMLocator(harvest.DefaultLocatorOptions(), a.tel)
			direct, nav, err = locator.Anchors(ctx, session)
			if err != nil {
				session.Close()
				serviceutil.Fatal("failed to read links", err)
			}
		}

		writeAnchors("All links", direct)
		writeAnchors("Navigation container links", nav)
		if len(headings) > 0 {
			fmt.Printf("Title: %q\n", harvest.PickTitle(headings))
		}
		harvest.WriteCandidates(os.Stdout, harvest.RankCandidates(direct, nav, harvest.DefaultLocatorOptions()))
	},
}
