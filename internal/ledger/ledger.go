// Package ledger keeps a history of harvest runs in sqlite.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"courseharvest/internal/components/assert"
	"courseharvest/internal/components/telemetry"
	"courseharvest/internal/db"
	"courseharvest/internal/harvest"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	_ "modernc.org/sqlite"
)

const (
	report_ledger_open   = "ledger.open"
	report_ledger_record = "ledger.record"
)

type Ledger struct {
	sqlite *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	tel    telemetry.API
}

// Open opens (creating if needed) the ledger at path, ":memory:" keeps it in
// memory.
func Open(path string, tel telemetry.API) (*Ledger, error) {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("ledger", tel)

	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		tel.ReportBroken(report_ledger_open, err, path)
		return nil, err
	}
	// every connection to :memory: is its own database
	sqlite.SetMaxOpenConns(1)

	_, err = sqlite.Exec(db.Schema)
	if err != nil {
		sqlite.Close()
		tel.ReportBroken(report_ledger_open, fmt.Errorf("apply schema: %w", err), path)
		return nil, err
	}

	return &Ledger{
		sqlite: sqlite,
		qry:    db.New(sqlite),
		makeTx: db.NewMakeTx(sqlite),
		tel:    tel,
	}, nil
}

func (l *Ledger) Close() error {
	return l.sqlite.Close()
}

// Record stores report and every one of its outcomes, returning the new run's
// id. Tokens are redacted from stored urls.
func (l *Ledger) Record(ctx context.Context, report harvest.HarvestReport) (string, error) {
	runId := uuid.NewString()

	tx, discard, commit, err := l.makeTx(ctx)
	if err != nil {
		l.tel.ReportBroken(report_ledger_record, fmt.Errorf("make tx: %w", err))
		return "", err
	}
	defer discard()

	err = tx.AddHarvestRun(ctx, db.AddHarvestRunParams{
		ID:         runId,
		Course:     report.Course,
		EntryUrl:   harvest.Redact(report.EntryUrl),
		OutputDir:  report.OutputDir,
		Attempted:  int64(report.Attempted),
		Succeeded:  int64(report.Succeeded),
		StartedAt:  report.StartedAt.UnixMilli(),
		FinishedAt: report.FinishedAt.UnixMilli(),
	})
	if err != nil {
		l.tel.ReportBroken(report_ledger_record, err, "AddHarvestRun", report.Course)
		return "", err
	}

	for _, o := range report.Outcomes {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		err = tx.AddLessonOutcome(ctx, db.AddLessonOutcomeParams{
			RunID:    runId,
			Sequence: int64(o.Sequence),
			Title:    o.Title,
			Url:      harvest.Redact(o.Url),
			Path:     o.Path,
			Size:     o.Size,
			Status:   string(o.Status),
			Reason:   string(o.Reason),
			Error:    errText,
			Skipped:  o.Skipped,
		})
		if err != nil {
			l.tel.ReportBroken(report_ledger_record, err, "AddLessonOutcome", runId, o.Sequence)
			return "", err
		}
	}

	err = commit()
	if err != nil {
		l.tel.ReportBroken(report_ledger_record, fmt.Errorf("commit: %w", err), runId)
		return "", err
	}
	return runId, nil
}

// Runs returns the most recent runs first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]db.HarvestRun, error) {
	return l.qry.ListHarvestRuns(ctx, int64(limit))
}

// Run returns a single run and its outcomes in sequence order.
func (l *Ledger) Run(ctx context.Context, id string) (db.HarvestRun, []db.LessonOutcome, error) {
	run, err := l.qry.GetHarvestRun(ctx, id)
	if err != nil {
		return db.HarvestRun{}, nil, err
	}
	outcomes, err := l.qry.ListLessonOutcomes(ctx, id)
	if err != nil {
		return db.HarvestRun{}, nil, err
	}
	return run, outcomes, nil
}

func WriteRuns(w io.Writer, runs []db.HarvestRun) {
	t := harvest.NewTable(w)
	t.AppendHeader(table.Row{"Run", "Course", "Saved", "Started", "Took"})
	for _, r := range runs {
		started := time.UnixMilli(r.StartedAt)
		took := time.Duration(r.FinishedAt-r.StartedAt) * time.Millisecond
		t.AppendRow(table.Row{
			r.ID,
			r.Course,
			fmt.Sprintf("%d/%d", r.Succeeded, r.Attempted),
			humanize.Time(started),
			took.Round(time.Second).String(),
		})
	}
	t.Render()
}

func WriteOutcomes(w io.Writer, run db.HarvestRun, outcomes []db.LessonOutcome) {
	t := harvest.NewTable(w)
	t.SetTitle(fmt.Sprintf("%s (%s)", run.Course, run.ID))
	t.AppendHeader(table.Row{"#", "Title", "Status", "Size", "Detail"})
	for _, o := range outcomes {
		status := o.Status
		if o.Reason != "" {
			status = fmt.Sprintf("%s (%s)", o.Status, o.Reason)
		}
		if o.Skipped {
			status = "skipped"
		}
		detail := o.Path
		if o.Error != "" {
			detail = o.Error
		}
		t.AppendRow(table.Row{o.Sequence, o.Title, status, humanize.Bytes(uint64(o.Size)), detail})
	}
	t.Render()
}
