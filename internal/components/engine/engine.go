// Package engine is the page rendering collaborator: one browser tab that can
// load a url, wait for the network to settle, evaluate a query against the
// rendered DOM, and print the current view to a fixed-layout document.
package engine

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned (wrapped) when an operation hit its own timeout
// rather than a cancellation of the caller's context.
var ErrTimeout = errors.New("engine: operation timed out")

// Query is an opaque DOM query. Name identifies it in logs and fakes, Script
// is a javascript function expression whose return value is JSON encodable.
type Query struct {
	Name   string
	Script string
}

// Layout describes the printed document. Sizes are in inches.
type Layout struct {
	PaperWidth      float64
	PaperHeight     float64
	Margin          float64
	PrintBackground bool
}

// A4 with backgrounds and 20px (at 96dpi) margins on every side.
var A4 = Layout{
	PaperWidth:      8.27,
	PaperHeight:     11.69,
	Margin:          20.0 / 96.0,
	PrintBackground: true,
}

// Session is a single page reused serially for every navigation of a run.
// Implementations are not safe for concurrent use.
//
// note: fault injection point
type Session interface {
	// Load navigates to url and waits for the load event. The returned status
	// is the http status of the main document.
	Load(ctx context.Context, url string, timeout time.Duration) (int, error)
	// WaitForIdle blocks until no network requests are in flight or the
	// timeout passes, in which case it returns an error wrapping ErrTimeout.
	WaitForIdle(ctx context.Context, timeout time.Duration) error
	// Evaluate runs q against the current page and decodes its result into out.
	Evaluate(ctx context.Context, q Query, out any) error
	// RenderDocument prints the current page to a PDF at path.
	RenderDocument(ctx context.Context, path string, layout Layout) error
	// Screenshot writes a full page PNG of the current page to path.
	Screenshot(ctx context.Context, path string) error
	// Html returns the serialized DOM of the current page.
	Html(ctx context.Context) (string, error)
	Close() error
}

// SuccessStatus reports whether status is a 2xx http status.
func SuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
