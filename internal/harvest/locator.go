package harvest

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"courseharvest/internal/components/engine"
	"courseharvest/internal/components/telemetry"
	"courseharvest/internal/storefront"
	"courseharvest/pkg/htmlutil"
)

const (
	report_locator_evaluate = "locator.evaluate"
	report_locator_fetch    = "locator.fetch"
)

// Locator discovers the lessons reachable from the page a session has loaded.
// Re-invoking it rescans the page.
type Locator interface {
	Locate(ctx context.Context, session engine.Session) ([]LessonCandidate, error)
}

type LocatorOptions struct {
	// QueryParam marks a lesson link through its query string.
	QueryParam string
	// PathSegment marks a lesson link through its path.
	PathSegment string
	// MarkerToken must appear in every returned url.
	MarkerToken string
	// TierOffset is the smallest rank given to navigation-only links.
	TierOffset int
}

func DefaultLocatorOptions() LocatorOptions {
	return LocatorOptions{
		QueryParam:  lessonIdParam,
		PathSegment: "lesson",
		MarkerToken: "lesson",
		TierOffset:  1000,
	}
}

func (o LocatorOptions) isLessonLink(href string) bool {
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	if o.QueryParam != "" && parsed.Query().Has(o.QueryParam) {
		return true
	}
	if o.PathSegment != "" && slices.Contains(strings.Split(parsed.Path, "/"), o.PathSegment) {
		return true
	}
	return false
}

func candidateTitle(anchor htmlutil.Anchor) (string, bool) {
	title := htmlutil.NormalizeText(anchor.Name)
	return title, utf8.RuneCountInString(title) >= minTitleLength
}

// RankCandidates merges the direct lesson links of a page with the links of
// its navigation container. Direct links come first in page order, followed
// by navigation links not already seen. Urls are unique in the result and the
// earliest occurrence supplies the title.
func RankCandidates(direct, nav []htmlutil.Anchor, opts LocatorOptions) []LessonCandidate {
	var merged []LessonCandidate
	for i, anchor := range direct {
		href := htmlutil.Resolve(nil, anchor.Href)
		if href == "" || !opts.isLessonLink(href) {
			continue
		}
		title, ok := candidateTitle(anchor)
		if !ok {
			continue
		}
		merged = append(merged, LessonCandidate{Url: href, Title: title, Rank: i})
	}

	offset := max(opts.TierOffset, len(direct))
	for i, anchor := range nav {
		href := htmlutil.Resolve(nil, anchor.Href)
		if href == "" {
			continue
		}
		title, ok := candidateTitle(anchor)
		if !ok {
			continue
		}
		merged = append(merged, LessonCandidate{Url: href, Title: title, Rank: offset + i})
	}

	slices.SortStableFunc(merged, func(a, b LessonCandidate) int {
		return a.Rank - b.Rank
	})

	seen := map[string]struct{}{}
	candidates := []LessonCandidate{}
	for _, c := range merged {
		if _, ok := seen[c.Url]; ok {
			continue
		}
		seen[c.Url] = struct{}{}
		if opts.MarkerToken != "" && !strings.Contains(c.Url, opts.MarkerToken) {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// DOMLocator finds lessons in the rendered DOM of the session's current page.
type DOMLocator struct {
	opts LocatorOptions
	tel  telemetry.API
}

func NewDOMLocator(opts LocatorOptions, tel telemetry.API) DOMLocator {
	return DOMLocator{
		opts: opts,
		tel:  telemetry.NewScopedAPI("dom_locator", tel),
	}
}

// Anchors returns every link of the current page and the links inside its
// navigation container.
func (l DOMLocator) Anchors(ctx context.Context, session engine.Session) (direct, nav []htmlutil.Anchor, err error) {
	err = session.Evaluate(ctx, queryAnchors, &direct)
	if err != nil {
		l.tel.ReportBroken(report_locator_evaluate, err, queryAnchors.Name)
		return nil, nil, err
	}
	err = session.Evaluate(ctx, queryNavAnchors, &nav)
	if err != nil {
		l.tel.ReportBroken(report_locator_evaluate, err, queryNavAnchors.Name)
		return nil, nil, err
	}
	return direct, nav, nil
}

func (l DOMLocator) Locate(ctx context.Context, session engine.Session) ([]LessonCandidate, error) {
	ctx, span := tracer.Start(ctx, "DOMLocator.Locate")
	defer span.End()

	direct, nav, err := l.Anchors(ctx, session)
	if err != nil {
		return nil, err
	}

	candidates := RankCandidates(direct, nav, l.opts)
	l.tel.ReportDebug(
		"located candidates",
		fmt.Sprintf("anchors=%d nav=%d candidates=%d", len(direct), len(nav), len(candidates)),
	)
	return candidates, nil
}

// PageFetcher fetches server rendered pages.
type PageFetcher interface {
	Fetch(ctx context.Context, rawUrl string) (storefront.Page, error)
}

// StaticLocator finds lessons in the server rendered html of a fixed page,
// without looking at the session.
type StaticLocator struct {
	pageUrl string
	fetcher PageFetcher
	opts    LocatorOptions
	tel     telemetry.API
}

func NewStaticLocator(pageUrl string, fetcher PageFetcher, opts LocatorOptions, tel telemetry.API) StaticLocator {
	return StaticLocator{
		pageUrl: pageUrl,
		fetcher: fetcher,
		opts:    opts,
		tel:     telemetry.NewScopedAPI("static_locator", tel),
	}
}

func (l StaticLocator) Locate(ctx context.Context, _ engine.Session) ([]LessonCandidate, error) {
	ctx, span := tracer.Start(ctx, "StaticLocator.Locate")
	defer span.End()

	page, err := l.fetcher.Fetch(ctx, l.pageUrl)
	if err != nil {
		l.tel.ReportBroken(report_locator_fetch, err, Redact(l.pageUrl))
		return nil, err
	}
	return RankCandidates(page.Anchors, page.NavAnchors, l.opts), nil
}
