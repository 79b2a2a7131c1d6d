package harvest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"courseharvest/internal/components/chrono"
	"courseharvest/internal/components/engine"
	"courseharvest/internal/components/engine/enginetest"
	"courseharvest/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func loadedSession(t *testing.T, page enginetest.Page) *enginetest.Session {
	t.Helper()
	session := &enginetest.Session{
		Pages: map[string]enginetest.Page{course: page},
	}
	_, err := session.Load(context.Background(), course, time.Second)
	require.NoError(t, err)
	return session
}

func TestRender(t *testing.T) {
	clock := chrono.NewFake(testStart)
	renderer := NewRenderer(DefaultRendererOptions(), clock, &telemetry.Recorder{})
	session := loadedSession(t, enginetest.Page{Document: []byte("%PDF-1.7 twelve")})
	dir := t.TempDir()

	path, size, err := renderer.Render(context.Background(), session, "Week 1: Intro", 3, 2, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "03_Week 1_ Intro.pdf"), path)
	require.Equal(t, int64(15), size)
	require.Equal(t, []time.Duration{4 * time.Second}, clock.Slept())
}

func TestRenderIdleTimeoutIsSoft(t *testing.T) {
	tel := &telemetry.Recorder{}
	renderer := NewRenderer(DefaultRendererOptions(), chrono.NewFake(testStart), tel)
	session := loadedSession(t, enginetest.Page{IdleErr: engine.ErrTimeout})

	_, size, err := renderer.Render(context.Background(), session, "Intro", 1, 2, t.TempDir())
	require.NoError(t, err)
	require.Positive(t, size)
	require.Len(t, tel.Reports("debug"), 1)
}

func TestRenderFailure(t *testing.T) {
	crashed := errors.New("target crashed")
	renderer := NewRenderer(DefaultRendererOptions(), chrono.NewFake(testStart), &telemetry.Recorder{})
	session := loadedSession(t, enginetest.Page{RenderErr: crashed})
	dir := t.TempDir()

	_, _, err := renderer.Render(context.Background(), session, "Intro", 1, 2, dir)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	require.ErrorIs(t, err, crashed)
	require.Equal(t, filepath.Join(dir, "01_Intro.pdf"), renderErr.Path)
}

func TestRenderMissingDirectory(t *testing.T) {
	renderer := NewRenderer(DefaultRendererOptions(), chrono.NewFake(testStart), &telemetry.Recorder{})
	session := loadedSession(t, enginetest.Page{})

	_, _, err := renderer.Render(context.Background(), session, "Intro", 1, 2, filepath.Join(t.TempDir(), "missing"))
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
}
