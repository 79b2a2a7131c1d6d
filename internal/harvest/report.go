package harvest

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleRounded
	// totals are values, keep their case
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	return t
}

func outcomeLabel(o LessonOutcome) string {
	switch {
	case o.Status == StatusSuccess && o.Skipped:
		return "skipped"
	case o.Status == StatusSuccess:
		return "ok"
	default:
		return fmt.Sprintf("failed (%s)", o.Reason)
	}
}

// WriteReport prints one row per attempted lesson followed by the totals.
func WriteReport(w io.Writer, report HarvestReport) {
	t := NewTable(w)
	t.SetTitle(fmt.Sprintf("%s -> %s", report.Course, report.OutputDir))
	t.AppendHeader(table.Row{"#", "Title", "Status", "Size", "File"})
	for _, o := range report.Outcomes {
		size := ""
		file := ""
		if o.Status == StatusSuccess {
			size = humanize.Bytes(uint64(o.Size))
			file = filepath.Base(o.Path)
		} else if o.Err != nil {
			file = o.Err.Error()
		}
		t.AppendRow(table.Row{o.Sequence, o.Title, outcomeLabel(o), size, file})
	}
	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("%d/%d saved", report.Succeeded, report.Attempted),
		fmt.Sprintf("%d failed", report.Failed()),
		humanize.Bytes(uint64(report.TotalSize())),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second).String(),
	})
	t.Render()
}

// WriteDiscovered prints lessons found by the prober.
func WriteDiscovered(w io.Writer, lessons []DiscoveredLesson) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"#", "Id", "Title", "Url"})
	for _, l := range lessons {
		t.AppendRow(table.Row{l.Sequence, l.Id, l.Title, Redact(l.Url)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d lessons", len(lessons)), ""})
	t.Render()
}

// WriteCandidates prints ranked lesson candidates.
func WriteCandidates(w io.Writer, candidates []LessonCandidate) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"#", "Rank", "Title", "Url"})
	for i, c := range candidates {
		t.AppendRow(table.Row{i + 1, c.Rank, c.Title, Redact(c.Url)})
	}
	t.Render()
}
