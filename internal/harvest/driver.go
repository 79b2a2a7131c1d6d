package harvest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"courseharvest/internal/components/assert"
	"courseharvest/internal/components/chrono"
	"courseharvest/internal/components/engine"
	"courseharvest/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("courseharvest/internal/harvest")

const (
	report_driver_entry     = "driver.entry"
	report_driver_output    = "driver.output"
	report_driver_locate    = "driver.locate"
	report_driver_lesson    = "driver.lesson"
	report_driver_attempted = "driver.attempted"
	report_driver_succeeded = "driver.succeeded"
)

type DriverOptions struct {
	NavigationTimeout time.Duration
	// Probe enables id probing when the locator finds nothing.
	Probe *ProbeOptions
	// SkipExisting keeps documents left by an earlier run instead of
	// rendering them again.
	SkipExisting bool
	// Pace limits how often lessons are navigated to, nil means no limit.
	Pace *rate.Limiter
}

func DefaultDriverOptions() DriverOptions {
	return DriverOptions{
		NavigationTimeout: 30 * time.Second,
	}
}

// Driver runs the harvest of a course over a single session. A session must
// never be shared between drivers.
type Driver struct {
	session  engine.Session
	locator  Locator
	renderer Renderer
	prober   Prober
	clock    chrono.API
	opts     DriverOptions
	tel      telemetry.API
}

func NewDriver(
	session engine.Session,
	locator Locator,
	renderer Renderer,
	clock chrono.API,
	tel telemetry.API,
	opts DriverOptions,
) Driver {
	assert.NotNil(session)
	assert.NotNil(locator)
	assert.NotNil(renderer.clock)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.Positive(opts.NavigationTimeout)

	return Driver{
		session:  session,
		locator:  locator,
		renderer: renderer,
		prober:   NewProber(session, clock, tel, opts.NavigationTimeout, renderer.opts.SettleDelay),
		clock:    clock,
		opts:     opts,
		tel:      telemetry.NewScopedAPI("driver", tel),
	}
}

func (d Driver) load(ctx context.Context, url string) error {
	status, err := d.session.Load(ctx, url, d.opts.NavigationTimeout)
	if err != nil {
		return err
	}
	if !engine.SuccessStatus(status) {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

// Harvest saves every lesson of target under outputRoot. It only fails
// outright when the output directory or the entry page is unusable, or when
// discovery breaks before any lesson is attempted. A cancelled context stops
// the run and the partial report is returned with the context's error.
func (d Driver) Harvest(ctx context.Context, target CourseTarget, outputRoot string) (report HarvestReport, err error) {
	ctx, span := tracer.Start(ctx, "Driver.Harvest")
	defer span.End()

	report = HarvestReport{
		Course:    target.Name,
		EntryUrl:  Redact(target.EntryUrl()),
		OutputDir: filepath.Join(outputRoot, target.Dirname()),
		StartedAt: d.clock.Now(),
	}
	defer func() {
		report.FinishedAt = d.clock.Now()
	}()
	span.SetAttributes(attribute.String("course", report.Course))

	err = os.MkdirAll(report.OutputDir, 0755)
	if err != nil {
		d.tel.ReportBroken(report_driver_output, err, report.OutputDir)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, fmt.Errorf("%w: %w", ErrOutputDir, err)
	}

	err = d.load(ctx, target.EntryUrl())
	if err != nil {
		d.tel.ReportBroken(report_driver_entry, err, report.EntryUrl)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, fmt.Errorf("%w: %w", ErrEntryPage, err)
	}

	candidates, err := d.discover(ctx, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	if len(candidates) == 0 {
		outcome := d.harvestCurrentPage(ctx, target, report.OutputDir)
		report.add(outcome)
		d.reportTotals(report)
		return report, ctx.Err()
	}

	width := PadWidth(len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			d.reportTotals(report)
			return report, err
		}
		outcome := d.harvestLesson(ctx, i+1, width, candidate, report.OutputDir)
		report.add(outcome)
	}

	d.reportTotals(report)
	return report, nil
}

func (d Driver) discover(ctx context.Context, target CourseTarget) ([]LessonCandidate, error) {
	candidates, err := d.locator.Locate(ctx, d.session)
	if err != nil {
		d.tel.ReportBroken(report_driver_locate, err)
		return nil, fmt.Errorf("locate lessons: %w", err)
	}
	if len(candidates) > 0 || d.opts.Probe == nil {
		return candidates, nil
	}

	d.tel.ReportDebug("no lessons located, probing ids")
	lessons, err := d.prober.Probe(ctx, target, *d.opts.Probe)
	if err != nil {
		return nil, fmt.Errorf("probe lessons: %w", err)
	}
	for _, lesson := range lessons {
		candidates = append(candidates, LessonCandidate{
			Url:   lesson.Url,
			Title: lesson.Title,
			Rank:  lesson.Sequence,
		})
	}
	if len(candidates) == 0 {
		// probing moved the session away from the entry page
		err = d.load(ctx, target.EntryUrl())
		if err != nil {
			d.tel.ReportBroken(report_driver_entry, err, Redact(target.EntryUrl()))
			return nil, fmt.Errorf("%w: %w", ErrEntryPage, err)
		}
	}
	return candidates, nil
}

// harvestCurrentPage saves the loaded page as the only lesson of the course.
func (d Driver) harvestCurrentPage(ctx context.Context, target CourseTarget, outputDir string) LessonOutcome {
	title, err := ReadTitle(ctx, d.session)
	if err != nil {
		d.tel.ReportWarning(report_driver_lesson, fmt.Errorf("read headings: %w", err))
	}
	if title == "" {
		title = fallbackTitle
	}

	outcome := LessonOutcome{Sequence: 1, Title: title, Url: target.EntryUrl()}
	path, size, err := d.renderer.Render(ctx, d.session, title, 1, PadWidth(1), outputDir)
	if err != nil {
		d.tel.ReportWarning(report_driver_lesson, err, 1, title)
		return outcome.failed(ReasonRender, err)
	}
	return outcome.succeeded(path, size)
}

func (d Driver) harvestLesson(ctx context.Context, seq, width int, candidate LessonCandidate, outputDir string) LessonOutcome {
	ctx, span := tracer.Start(ctx, "Driver.harvestLesson")
	defer span.End()
	span.SetAttributes(
		attribute.Int("sequence", seq),
		attribute.String("title", candidate.Title),
		attribute.String("url", Redact(candidate.Url)),
	)

	outcome := LessonOutcome{
		Sequence: seq,
		Title:    candidate.Title,
		Url:      candidate.Url,
	}

	if d.opts.SkipExisting {
		path := filepath.Join(outputDir, LessonFilename(seq, width, candidate.Title))
		info, err := os.Stat(path)
		if err == nil && info.Size() > 0 {
			d.tel.ReportDebug("lesson already saved", path)
			outcome.Skipped = true
			return outcome.succeeded(path, info.Size())
		}
	}

	if d.opts.Pace != nil {
		err := d.opts.Pace.Wait(ctx)
		if err != nil {
			return outcome.failed(ReasonNavigation, err)
		}
	}

	err := d.load(ctx, candidate.Url)
	if err != nil {
		d.tel.ReportWarning(
			report_driver_lesson,
			fmt.Errorf("navigate: %w", err),
			seq,
			Redact(candidate.Url),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome.failed(ReasonNavigation, err)
	}

	path, size, err := d.renderer.Render(ctx, d.session, candidate.Title, seq, width, outputDir)
	if err != nil {
		d.tel.ReportWarning(report_driver_lesson, err, seq, candidate.Title)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome.failed(ReasonRender, err)
	}
	return outcome.succeeded(path, size)
}

func (d Driver) reportTotals(report HarvestReport) {
	d.tel.ReportCount(report_driver_attempted, int64(report.Attempted))
	d.tel.ReportCount(report_driver_succeeded, int64(report.Succeeded))
}
