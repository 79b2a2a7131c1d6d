package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courseharvest/internal/components/assert"
	"courseharvest/internal/components/chrono"
	"courseharvest/internal/components/engine"
	"courseharvest/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
)

const (
	report_prober_probe = "prober.probe"
	report_prober_found = "prober.found"

	defaultProbeSpan              = 500
	defaultMaxConsecutiveFailures = 10
)

var (
	errNotLesson = errors.New("page is not a lesson")
	errNoTitle   = errors.New("no usable title on page")
)

type ProbeOptions struct {
	StartId int64
	// MaxId is exclusive.
	MaxId                  int64
	MaxConsecutiveFailures int
}

func (o ProbeOptions) withDefaults(target CourseTarget) ProbeOptions {
	if o.StartId <= 0 {
		o.StartId = target.StartLessonId
	}
	if o.MaxId <= 0 {
		o.MaxId = o.StartId + defaultProbeSpan
	}
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	return o
}

// Prober discovers lessons of a course whose navigation exposes nothing, by
// walking the numeric lesson ids upward until a run of consecutive misses.
type Prober struct {
	session           engine.Session
	clock             chrono.API
	tel               telemetry.API
	navigationTimeout time.Duration
	settleDelay       time.Duration
}

func NewProber(
	session engine.Session,
	clock chrono.API,
	tel telemetry.API,
	navigationTimeout, settleDelay time.Duration,
) Prober {
	assert.NotNil(session)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return Prober{
		session:           session,
		clock:             clock,
		tel:               telemetry.NewScopedAPI("prober", tel),
		navigationTimeout: navigationTimeout,
		settleDelay:       settleDelay,
	}
}

func (p Prober) title(ctx context.Context, lessonUrl string) (string, error) {
	status, err := p.session.Load(ctx, lessonUrl, p.navigationTimeout)
	if err != nil {
		return "", err
	}
	if !engine.SuccessStatus(status) {
		return "", fmt.Errorf("%w: status %d", errNotLesson, status)
	}
	err = p.clock.Sleep(ctx, p.settleDelay)
	if err != nil {
		return "", err
	}

	title, err := ReadTitle(ctx, p.session)
	if err != nil {
		return "", err
	}
	if title == "" {
		return "", errNoTitle
	}
	return title, nil
}

// Probe scans ids from opts.StartId up to (not including) opts.MaxId and
// stops early after opts.MaxConsecutiveFailures misses in a row. Ids are never
// revisited. Only a cancelled context makes it return an error, along with
// whatever was found so far.
func (p Prober) Probe(ctx context.Context, target CourseTarget, opts ProbeOptions) ([]DiscoveredLesson, error) {
	ctx, span := tracer.Start(ctx, "Prober.Probe")
	defer span.End()

	opts = opts.withDefaults(target)
	span.SetAttributes(
		attribute.Int64("start_id", opts.StartId),
		attribute.Int64("max_id", opts.MaxId),
	)

	found := []DiscoveredLesson{}
	failures := 0
	for current := opts.StartId; current < opts.MaxId && failures < opts.MaxConsecutiveFailures; current++ {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		lessonUrl := target.LessonUrl(current)
		title, err := p.title(ctx, lessonUrl)
		if err != nil {
			if ctx.Err() != nil {
				return found, ctx.Err()
			}
			failures++
			p.tel.ReportDebug(
				report_prober_probe,
				fmt.Sprintf("id=%d failures=%d", current, failures),
				err,
			)
			continue
		}

		failures = 0
		found = append(found, DiscoveredLesson{
			Sequence: len(found) + 1,
			Id:       current,
			Title:    title,
			Url:      lessonUrl,
		})
	}

	p.tel.ReportCount(report_prober_found, int64(len(found)))
	return found, nil
}
