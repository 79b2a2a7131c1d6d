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
)

type RendererOptions struct {
	// IdleTimeout caps the wait for network idle, reaching it is not an error.
	IdleTimeout time.Duration
	// SettleDelay gives client side frameworks time to paint after idle.
	SettleDelay time.Duration
	Layout      engine.Layout
}

func DefaultRendererOptions() RendererOptions {
	return RendererOptions{
		IdleTimeout: 20 * time.Second,
		SettleDelay: 4 * time.Second,
		Layout:      engine.A4,
	}
}

// Renderer turns the page a session has loaded into a document on disk.
type Renderer struct {
	opts  RendererOptions
	clock chrono.API
	tel   telemetry.API
}

func NewRenderer(opts RendererOptions, clock chrono.API, tel telemetry.API) Renderer {
	assert.NotNil(clock)
	assert.NotNil(tel)
	return Renderer{
		opts:  opts,
		clock: clock,
		tel:   telemetry.NewScopedAPI("renderer", tel),
	}
}

// Settle waits for the network to go idle, giving up quietly after the idle
// timeout, and then for the settle delay.
func (r Renderer) Settle(ctx context.Context, session engine.Session) error {
	err := session.WaitForIdle(ctx, r.opts.IdleTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.tel.ReportDebug("network idle wait capped", err)
	}
	return r.clock.Sleep(ctx, r.opts.SettleDelay)
}

// Render writes the current page of session to outputDir as the lesson at seq
// and returns the document's path and byte size. Every failure is a
// *RenderError.
func (r Renderer) Render(
	ctx context.Context,
	session engine.Session,
	title string,
	seq, width int,
	outputDir string,
) (string, int64, error) {
	ctx, span := tracer.Start(ctx, "Renderer.Render")
	defer span.End()

	path := filepath.Join(outputDir, LessonFilename(seq, width, title))

	err := r.Settle(ctx, session)
	if err != nil {
		return "", 0, &RenderError{Path: path, Err: err}
	}

	err = session.RenderDocument(ctx, path, r.opts.Layout)
	if err != nil {
		return "", 0, &RenderError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", 0, &RenderError{Path: path, Err: fmt.Errorf("stat: %w", err)}
	}
	return path, info.Size(), nil
}
