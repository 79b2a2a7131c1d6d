package harvest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"courseharvest/internal/components/engine/enginetest"

	"github.com/stretchr/testify/require"
)

func TestCapture(t *testing.T) {
	session := &enginetest.Session{
		Pages: map[string]enginetest.Page{
			course: {Html: "<html><body><h1>Course home</h1><p>Hello <b>world</b></p></body></html>"},
		},
	}
	h := newHarness(t)
	dir := filepath.Join(t.TempDir(), "captures")

	result, err := h.renderer.Capture(context.Background(), session, course, DefaultDriverOptions().NavigationTimeout, dir, "home?")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "home_.png"), result.Screenshot)

	html, err := os.ReadFile(result.Html)
	require.NoError(t, err)
	require.Contains(t, string(html), "<h1>Course home</h1>")

	markdown, err := os.ReadFile(result.Markdown)
	require.NoError(t, err)
	require.Contains(t, string(markdown), "# Course home")
	require.Contains(t, string(markdown), "**world**")

	_, err = os.Stat(result.Screenshot)
	require.NoError(t, err)
}

func TestCaptureErrorStatus(t *testing.T) {
	h := newHarness(t)
	_, err := h.renderer.Capture(context.Background(), &enginetest.Session{}, course, DefaultDriverOptions().NavigationTimeout, t.TempDir(), "missing")
	require.ErrorContains(t, err, "status 404")
}
