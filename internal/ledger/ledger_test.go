package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"courseharvest/internal/components/telemetry"
	"courseharvest/internal/harvest"

	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(":memory:", &telemetry.Recorder{})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func testReport(course string, started time.Time) harvest.HarvestReport {
	return harvest.HarvestReport{
		Course:     course,
		EntryUrl:   "https://store.test/course/abc?token=secret",
		OutputDir:  "out/" + course,
		Attempted:  2,
		Succeeded:  1,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Outcomes: []harvest.LessonOutcome{
			{
				Sequence: 1,
				Title:    "Intro",
				Url:      "https://store.test/course/abc?lesson_id=1&token=secret",
				Path:     "out/" + course + "/01_Intro.pdf",
				Size:     4096,
				Status:   harvest.StatusSuccess,
			},
			{
				Sequence: 2,
				Title:    "Broken",
				Url:      "https://store.test/course/abc?lesson_id=2&token=secret",
				Status:   harvest.StatusFailed,
				Reason:   harvest.ReasonNavigation,
				Err:      errors.New("net::ERR_TIMED_OUT"),
			},
		},
	}
}

func TestRecordRoundTrip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	id, err := l.Record(ctx, testReport("Breathwork", started))
	require.NoError(t, err)
	require.Len(t, id, 36)

	run, outcomes, err := l.Run(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Breathwork", run.Course)
	require.Equal(t, "https://store.test/course/abc?token=REDACTED", run.EntryUrl)
	require.Equal(t, int64(2), run.Attempted)
	require.Equal(t, int64(1), run.Succeeded)
	require.Equal(t, started.UnixMilli(), run.StartedAt)

	require.Len(t, outcomes, 2)
	require.Equal(t, "success", outcomes[0].Status)
	require.Equal(t, int64(4096), outcomes[0].Size)
	require.NotContains(t, outcomes[0].Url, "secret")
	require.Equal(t, "navigation-error", outcomes[1].Reason)
	require.Equal(t, "net::ERR_TIMED_OUT", outcomes[1].Error)
	require.False(t, outcomes[1].Skipped)
}

func TestRunsNewestFirst(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := l.Record(ctx, testReport("first", started))
	require.NoError(t, err)
	_, err = l.Record(ctx, testReport("second", started.Add(time.Hour)))
	require.NoError(t, err)
	_, err = l.Record(ctx, testReport("third", started.Add(2*time.Hour)))
	require.NoError(t, err)

	runs, err := l.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "third", runs[0].Course)
	require.Equal(t, "second", runs[1].Course)

	var out bytes.Buffer
	WriteRuns(&out, runs)
	require.Contains(t, out.String(), "third")
	require.Contains(t, out.String(), "1/2")
}

func TestRunMissing(t *testing.T) {
	l := openTestLedger(t)
	_, _, err := l.Run(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWriteOutcomes(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	id, err := l.Record(ctx, testReport("Breathwork", time.Now()))
	require.NoError(t, err)
	run, outcomes, err := l.Run(ctx, id)
	require.NoError(t, err)

	var out bytes.Buffer
	WriteOutcomes(&out, run, outcomes)
	require.Contains(t, out.String(), "01_Intro.pdf")
	require.Contains(t, out.String(), "failed (navigation-error)")
	require.Contains(t, out.String(), "4.1 kB")
}
