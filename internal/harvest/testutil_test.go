package harvest

import (
	"context"
	"testing"
	"time"

	"courseharvest/internal/components/chrono"
	"courseharvest/internal/components/engine"
	"courseharvest/internal/components/engine/enginetest"
	"courseharvest/internal/components/telemetry"
	"courseharvest/pkg/htmlutil"
)

var testStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixedLocator []LessonCandidate

func (l fixedLocator) Locate(ctx context.Context, session engine.Session) ([]LessonCandidate, error) {
	return l, nil
}

func anchor(text, href string) htmlutil.Anchor {
	return htmlutil.Anchor{Name: text, Href: href}
}

func lessonPage(headings ...string) enginetest.Page {
	return enginetest.Page{
		Results: map[string]any{
			queryHeadings.Name: headings,
		},
	}
}

type testHarness struct {
	clock    *chrono.Fake
	tel      *telemetry.Recorder
	renderer Renderer
}

func newHarness(t *testing.T) testHarness {
	t.Helper()
	clock := chrono.NewFake(testStart)
	tel := &telemetry.Recorder{}
	return testHarness{
		clock:    clock,
		tel:      tel,
		renderer: NewRenderer(DefaultRendererOptions(), clock, tel),
	}
}

func (h testHarness) driver(session engine.Session, locator Locator, opts DriverOptions) Driver {
	if locator == nil {
		locator = NewDOMLocator(DefaultLocatorOptions(), h.tel)
	}
	return NewDriver(session, locator, h.renderer, h.clock, h.tel, opts)
}
