package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("harvest", rec)

	scoped.ReportWarning("driver.lesson", "boom")
	scoped.ReportBroken("driver.entry-page")
	scoped.ReportCount("driver.succeeded", 3)

	warnings := rec.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, "harvest: driver.lesson", warnings[0].Id)
	require.Equal(t, []any{"boom"}, warnings[0].Params)

	require.Len(t, rec.Reports("broken"), 1)

	n, ok := rec.Count("harvest: driver.succeeded")
	require.True(t, ok)
	require.Equal(t, int64(3), n)
}

func TestSetupWithoutExporters(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.False(t, tel.Enabled())
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestScrubUrl(t *testing.T) {
	require.Equal(
		t,
		"https://store.test/lesson?lesson_id=4&token=REDACTED",
		ScrubUrl("https://store.test/lesson?token=abc&lesson_id=4"),
	)
	require.Equal(t, "https://store.test/lesson?id=4", ScrubUrl("https://store.test/lesson?id=4"))
	require.Equal(t, "https://store.test/", ScrubUrl("https://store.test/"))
}

func TestScrubError(t *testing.T) {
	err := fmt.Errorf("fetch: %w", &url.Error{
		Op:  "Get",
		URL: "https://store.test/lesson?token=abc",
		Err: io.EOF,
	})
	require.Equal(t, `fetch: Get "https://store.test/lesson?token=REDACTED": EOF`, ScrubError(err).Error())
	require.ErrorIs(t, err, io.EOF)

	plain := errors.New("no url here")
	require.Equal(t, plain, ScrubError(plain))
}
