package harvest

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEntryPage means the course entry page could not be loaded, so nothing
	// can be discovered.
	ErrEntryPage = errors.New("harvest: entry page failed to load")
	// ErrOutputDir means the course output directory could not be created.
	ErrOutputDir = errors.New("harvest: cannot create output directory")
)

// RenderError wraps any failure of the renderer for a single lesson.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// LessonCandidate is a discovered lesson that has not been fetched yet.
// Candidates are identified by Url.
type LessonCandidate struct {
	Url   string
	Title string
	Rank  int
}

// DiscoveredLesson is a lesson found by the Prober.
type DiscoveredLesson struct {
	Sequence int
	Id       int64
	Title    string
	Url      string
}

type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailed  OutcomeStatus = "failed"
)

type FailureReason string

const (
	ReasonNone       FailureReason = ""
	ReasonNavigation FailureReason = "navigation-error"
	ReasonRender     FailureReason = "render-error"
)

// LessonOutcome is the result of one attempted lesson.
type LessonOutcome struct {
	Sequence int
	Title    string
	Url      string
	Path     string
	Size     int64
	Status   OutcomeStatus
	Reason   FailureReason
	Err      error
	// Skipped is set on successes whose document already existed.
	Skipped bool
}

func (o LessonOutcome) succeeded(path string, size int64) LessonOutcome {
	o.Path = path
	o.Size = size
	o.Status = StatusSuccess
	return o
}

func (o LessonOutcome) failed(reason FailureReason, err error) LessonOutcome {
	o.Status = StatusFailed
	o.Reason = reason
	o.Err = err
	return o
}

// HarvestReport summarizes one course run.
type HarvestReport struct {
	Course     string
	EntryUrl   string
	OutputDir  string
	Attempted  int
	Succeeded  int
	Outcomes   []LessonOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *HarvestReport) add(outcome LessonOutcome) {
	r.Attempted++
	if outcome.Status == StatusSuccess {
		r.Succeeded++
	}
	r.Outcomes = append(r.Outcomes, outcome)
}

func (r HarvestReport) Failed() int {
	return r.Attempted - r.Succeeded
}

// TotalSize is the byte size of every saved document.
func (r HarvestReport) TotalSize() int64 {
	var total int64
	for _, o := range r.Outcomes {
		total += o.Size
	}
	return total
}
