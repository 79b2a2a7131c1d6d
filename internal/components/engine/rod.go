package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"courseharvest/internal/components/assert"
	"courseharvest/internal/components/telemetry"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	report_rod_launch = "rod.launch"
	report_rod_load   = "rod.load"
	report_rod_close  = "rod.close"
)

// requests must stay quiet for this long before the page counts as idle
const networkIdleWindow = 500 * time.Millisecond

// the performance api exposes the status of the main document, rod's
// Navigate does not
const navigationStatusScript = `() => {
	const entry = performance.getEntriesByType('navigation')[0];
	return entry && entry.responseStatus ? entry.responseStatus : 0;
}`

type RodOptions struct {
	// ControlUrl connects to an already running browser instead of launching one.
	ControlUrl string
	// Bin is the browser binary, when empty rod looks one up or downloads it.
	Bin            string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
}

// RodSession implements Session on a single go-rod page.
type RodSession struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	tel      telemetry.API
}

func LaunchRod(ctx context.Context, opts RodOptions, tel telemetry.API) (*RodSession, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("engine", tel)

	controlUrl := opts.ControlUrl
	var l *launcher.Launcher
	if controlUrl == "" {
		l = launcher.New().
			Context(ctx).
			Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}

		var err error
		controlUrl, err = l.Launch()
		if err != nil {
			tel.ReportBroken(report_rod_launch, fmt.Errorf("launch browser: %w", err))
			return nil, err
		}
	}

	browser := rod.New().ControlURL(controlUrl)
	err := browser.Connect()
	if err != nil {
		tel.ReportBroken(report_rod_launch, fmt.Errorf("connect: %w", err), controlUrl)
		if l != nil {
			l.Kill()
		}
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		tel.ReportBroken(report_rod_launch, fmt.Errorf("open page: %w", err))
		browser.Close()
		return nil, err
	}

	width, height := opts.ViewportWidth, opts.ViewportHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		tel.ReportWarning(report_rod_launch, fmt.Errorf("set viewport: %w", err))
	}

	return &RodSession{
		browser:  browser,
		page:     page,
		launcher: l,
		tel:      tel,
	}, nil
}

func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

func (s *RodSession) Load(ctx context.Context, url string, timeout time.Duration) (int, error) {
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := s.page.Context(loadCtx)
	err := page.Navigate(url)
	if err != nil {
		return 0, timeoutErr(loadCtx, fmt.Errorf("navigate: %w", err))
	}
	err = page.WaitLoad()
	if err != nil {
		return 0, timeoutErr(loadCtx, fmt.Errorf("wait for load: %w", err))
	}

	res, err := page.Eval(navigationStatusScript)
	if err != nil {
		s.tel.ReportDebug(report_rod_load, "read navigation status", err)
		return 200, nil
	}
	status := res.Value.Int()
	if status == 0 {
		// older browsers and cached documents do not report a status
		status = 200
	}
	return status, nil
}

func (s *RodSession) WaitForIdle(ctx context.Context, timeout time.Duration) error {
	idleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := s.page.Context(idleCtx).WaitRequestIdle(networkIdleWindow, nil, nil, nil)
	wait()

	if err := idleCtx.Err(); err != nil {
		return timeoutErr(idleCtx, err)
	}
	return nil
}

func (s *RodSession) Evaluate(ctx context.Context, q Query, out any) error {
	res, err := s.page.Context(ctx).Eval(q.Script)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", q.Name, err)
	}
	err = json.Unmarshal([]byte(res.Value.JSON("", "")), out)
	if err != nil {
		return fmt.Errorf("decode %s: %w", q.Name, err)
	}
	return nil
}

func (s *RodSession) RenderDocument(ctx context.Context, path string, layout Layout) error {
	margin := layout.Margin
	width := layout.PaperWidth
	height := layout.PaperHeight

	reader, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground: layout.PrintBackground,
		PaperWidth:      &width,
		PaperHeight:     &height,
		MarginTop:       &margin,
		MarginBottom:    &margin,
		MarginLeft:      &margin,
		MarginRight:     &margin,
	})
	if err != nil {
		return fmt.Errorf("print to pdf: %w", err)
	}
	defer reader.Close()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(file, reader)
	if err != nil {
		file.Close()
		return fmt.Errorf("write pdf: %w", err)
	}
	return file.Close()
}

func (s *RodSession) Screenshot(ctx context.Context, path string) error {
	contents, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	return os.WriteFile(path, contents, 0644)
}

func (s *RodSession) Html(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *RodSession) Close() error {
	err := s.browser.Close()
	if err != nil {
		s.tel.ReportWarning(report_rod_close, err)
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return err
}
