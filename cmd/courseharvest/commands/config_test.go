package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const baseConfig = `{
	// shared by every course without its own token
	token: "base-token",
	output_root: "out",
	courses: [
		{name: "Breathwork", url: "https://store.test/course/abc", store: "42"},
		{name: "Probed", url: "https://store.test/course/def?lesson_id={id}", token: "own", start_lesson_id: 5},
	],
	timing: {settle_delay: 2.5, lessons_per_minute: 30},
	probe: {enabled: true, max_consecutive_failures: 12},
}`

func writeConfig(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "courseharvest.json5", baseConfig)
	writeConfig(t, dir, "courseharvest.local.json5", `{output_root: "/mnt/courses", browser: {headless: false}}`)

	cfg, err := LoadConfig(path, envOverrides{})
	require.NoError(t, err)

	require.Equal(t, "/mnt/courses", cfg.OutputRoot)
	require.False(t, *cfg.Browser.Headless)
	require.Len(t, cfg.Courses, 2)
	require.Equal(t, "base-token", cfg.Courses[0].Token)
	require.Equal(t, "own", cfg.Courses[1].Token)

	require.Equal(t, 2500*time.Millisecond, cfg.RendererOptions().SettleDelay)
	require.Equal(t, 20*time.Second, cfg.RendererOptions().IdleTimeout)

	opts := cfg.DriverOptions()
	require.Equal(t, 30*time.Second, opts.NavigationTimeout)
	require.NotNil(t, opts.Probe)
	require.Equal(t, 12, opts.Probe.MaxConsecutiveFailures)
	require.NotNil(t, opts.Pace)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "courseharvest.json5", baseConfig)

	cfg, err := LoadConfig(path, envOverrides{
		OutputRoot: "/env/out",
		Token:      "env-token",
		Headless:   "false",
		Ledger:     "runs.db",
	})
	require.NoError(t, err)
	require.Equal(t, "/env/out", cfg.OutputRoot)
	require.Equal(t, "runs.db", cfg.Ledger)
	require.Equal(t, "env-token", cfg.Courses[0].Token)
	require.Equal(t, "own", cfg.Courses[1].Token)
	require.False(t, cfg.RodOptions().Headless)

	_, err = LoadConfig(path, envOverrides{Headless: "sometimes"})
	require.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json5"), envOverrides{})
	require.NoError(t, err)
	require.Equal(t, "courses", cfg.OutputRoot)
	require.True(t, cfg.RodOptions().Headless)
	require.Equal(t, 30*time.Second, cfg.CoursePause())
	require.Nil(t, cfg.DriverOptions().Probe)
}

func TestLoadConfigInvalidCourse(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "courseharvest.json5", `{courses: [{name: "bad", url: "https://x/c?lesson_id={id}"}]}`)
	_, err := LoadConfig(path, envOverrides{})
	require.Error(t, err)
}

func TestTargets(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "courseharvest.json5", baseConfig)
	cfg, err := LoadConfig(path, envOverrides{})
	require.NoError(t, err)

	all, err := cfg.Targets(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	named, err := cfg.Targets([]string{"Probed"})
	require.NoError(t, err)
	require.Equal(t, "https://store.test/course/def?lesson_id=5", named[0].EntryUrl())

	adhoc, err := cfg.Target("https://store.test/course/xyz")
	require.NoError(t, err)
	require.Equal(t, "base-token", adhoc.Token)

	_, err = cfg.Target("Unknown course")
	require.Error(t, err)
}

func TestLoadConfigProbeMaxId(t *testing.T) {
	dir := t.TempDir()

	path := writeConfig(t, dir, "below.json5", `{
		courses: [{name: "c", url: "https://x/c?lesson_id={id}", start_lesson_id: 700}],
		probe: {enabled: true, max_id: 600},
	}`)
	_, err := LoadConfig(path, envOverrides{})
	require.ErrorContains(t, err, "probe.max_id")

	path = writeConfig(t, dir, "above.json5", `{
		courses: [{name: "c", url: "https://x/c?lesson_id={id}", start_lesson_id: 500}],
		probe: {enabled: true, max_id: 600},
	}`)
	cfg, err := LoadConfig(path, envOverrides{})
	require.NoError(t, err)
	require.Equal(t, int64(600), cfg.DriverOptions().Probe.MaxId)
}

func TestProbeOptionsFlags(t *testing.T) {
	cfg := Config{Probe: ProbeConfig{MaxId: 900, MaxConsecutiveFailures: 12}}

	opts := probeOptions(cfg, 0, 0, 0)
	require.Equal(t, int64(0), opts.StartId)
	require.Equal(t, int64(900), opts.MaxId)
	require.Equal(t, 12, opts.MaxConsecutiveFailures)

	opts = probeOptions(cfg, 40, 80, 3)
	require.Equal(t, int64(40), opts.StartId)
	require.Equal(t, int64(80), opts.MaxId)
	require.Equal(t, 3, opts.MaxConsecutiveFailures)
}
