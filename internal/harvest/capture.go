package harvest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"courseharvest/internal/components/engine"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// CaptureResult holds the paths written by Capture.
type CaptureResult struct {
	Screenshot string
	Html       string
	Markdown   string
}

// Capture loads pageUrl and saves what it looks like after rendering settles:
// a full page screenshot, the rendered html and a markdown conversion of it.
// Files are named after name.
func (r Renderer) Capture(
	ctx context.Context,
	session engine.Session,
	pageUrl string,
	navigationTimeout time.Duration,
	outputDir, name string,
) (CaptureResult, error) {
	ctx, span := tracer.Start(ctx, "Renderer.Capture")
	defer span.End()

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("%w: %w", ErrOutputDir, err)
	}

	status, err := session.Load(ctx, pageUrl, navigationTimeout)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("load: %w", err)
	}
	if !engine.SuccessStatus(status) {
		return CaptureResult{}, fmt.Errorf("load: unexpected status %d", status)
	}
	err = r.Settle(ctx, session)
	if err != nil {
		return CaptureResult{}, err
	}

	name = Sanitize(name)
	if name == "" {
		name = "page"
	}
	base := filepath.Join(outputDir, name)
	result := CaptureResult{
		Screenshot: base + ".png",
		Html:       base + ".html",
		Markdown:   base + ".md",
	}

	err = session.Screenshot(ctx, result.Screenshot)
	if err != nil {
		return CaptureResult{}, err
	}

	html, err := session.Html(ctx)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("read html: %w", err)
	}
	err = os.WriteFile(result.Html, []byte(html), 0644)
	if err != nil {
		return CaptureResult{}, err
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("convert to markdown: %w", err)
	}
	err = os.WriteFile(result.Markdown, []byte(markdown), 0644)
	if err != nil {
		return CaptureResult{}, err
	}
	return result, nil
}
