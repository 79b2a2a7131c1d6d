package commands

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"courseharvest/internal/components/engine"
	"courseharvest/internal/harvest"
	"courseharvest/lib/configutil"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/time/rate"
)

type CourseConfig struct {
	Name  string `json:"name"`
	Url   string `json:"url"`
	Token string `json:"token"`
	Store string `json:"store"`
	// StartLessonId is both the entry lesson and where probing starts.
	StartLessonId int64 `json:"start_lesson_id"`
}

type BrowserConfig struct {
	Bin        string `json:"bin"`
	ControlUrl string `json:"control_url"`
	// Headless defaults to true.
	Headless       *bool `json:"headless"`
	ViewportWidth  int   `json:"viewport_width"`
	ViewportHeight int   `json:"viewport_height"`
}

// durations are in seconds
type TimingConfig struct {
	NavigationTimeout float64 `json:"navigation_timeout"`
	IdleTimeout       float64 `json:"idle_timeout"`
	SettleDelay       float64 `json:"settle_delay"`
	CoursePause       float64 `json:"course_pause"`
	// LessonsPerMinute of 0 leaves lesson navigation unpaced.
	LessonsPerMinute float64 `json:"lessons_per_minute"`
}

type ProbeConfig struct {
	Enabled                bool  `json:"enabled"`
	MaxId                  int64 `json:"max_id"`
	MaxConsecutiveFailures int   `json:"max_consecutive_failures"`
}

type StorefrontConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	// CacheDir of "" disables the page cache.
	CacheDir string `json:"cache_dir"`
	// CacheLifetime is in minutes.
	CacheLifetime float64 `json:"cache_lifetime"`
}

type Config struct {
	// Token is used by every course that does not set its own.
	Token      string           `json:"token"`
	OutputRoot string           `json:"output_root"`
	Ledger     string           `json:"ledger"`
	Courses    []CourseConfig   `json:"courses"`
	Browser    BrowserConfig    `json:"browser"`
	Timing     TimingConfig     `json:"timing"`
	Probe      ProbeConfig      `json:"probe"`
	Storefront StorefrontConfig `json:"storefront"`
}

// envOverrides are read from COURSEHARVEST_* variables (a .env file is loaded
// into the environment first).
type envOverrides struct {
	OutputRoot string `envconfig:"OUTPUT_ROOT"`
	Ledger     string `envconfig:"LEDGER"`
	Token      string `envconfig:"TOKEN"`
	Headless   string `envconfig:"HEADLESS"`
	BrowserBin string `envconfig:"BROWSER_BIN"`
	ControlUrl string `envconfig:"CONTROL_URL"`
	Verbose    bool   `envconfig:"VERBOSE"`
}

func loadEnv() (envOverrides, error) {
	var env envOverrides
	err := envconfig.Process("courseharvest", &env)
	if err != nil {
		return envOverrides{}, fmt.Errorf("read environment: %w", err)
	}
	return env, nil
}

func seconds(s float64, fallback time.Duration) time.Duration {
	if s <= 0 {
		return fallback
	}
	return time.Duration(s * float64(time.Second))
}

func (c *Config) applyEnv(env envOverrides) error {
	if env.OutputRoot != "" {
		c.OutputRoot = env.OutputRoot
	}
	if env.Ledger != "" {
		c.Ledger = env.Ledger
	}
	if env.BrowserBin != "" {
		c.Browser.Bin = env.BrowserBin
	}
	if env.ControlUrl != "" {
		c.Browser.ControlUrl = env.ControlUrl
	}
	if env.Headless != "" {
		headless, err := strconv.ParseBool(env.Headless)
		if err != nil {
			return fmt.Errorf("COURSEHARVEST_HEADLESS: %w", err)
		}
		c.Browser.Headless = &headless
	}
	if env.Token != "" {
		c.Token = env.Token
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.OutputRoot == "" {
		c.OutputRoot = "courses"
	}
	for i := range c.Courses {
		if c.Courses[i].Token == "" {
			c.Courses[i].Token = c.Token
		}
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
}

// LoadConfig reads path (and its .local override) and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string, env envOverrides) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	err = cfg.applyEnv(env)
	if err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	for _, course := range cfg.Courses {
		err = course.target().Validate()
		if err != nil {
			return Config{}, err
		}
		// max_id is exclusive, a start at or past it would probe nothing
		if cfg.Probe.MaxId > 0 && course.StartLessonId >= cfg.Probe.MaxId {
			return Config{}, fmt.Errorf(
				"course %q: start_lesson_id %d is not below probe.max_id %d",
				course.Name, course.StartLessonId, cfg.Probe.MaxId,
			)
		}
	}
	return cfg, nil
}

func (c CourseConfig) target() harvest.CourseTarget {
	return harvest.CourseTarget{
		Name:          c.Name,
		Url:           c.Url,
		Token:         c.Token,
		Store:         c.Store,
		StartLessonId: c.StartLessonId,
	}
}

// Targets returns the configured courses named in names, or all of them when
// names is empty.
func (c Config) Targets(names []string) ([]harvest.CourseTarget, error) {
	if len(names) == 0 {
		targets := make([]harvest.CourseTarget, 0, len(c.Courses))
		for _, course := range c.Courses {
			targets = append(targets, course.target())
		}
		return targets, nil
	}

	var targets []harvest.CourseTarget
	for _, name := range names {
		target, err := c.Target(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Target resolves a configured course name, or an ad hoc course url.
func (c Config) Target(nameOrUrl string) (harvest.CourseTarget, error) {
	for _, course := range c.Courses {
		if course.Name == nameOrUrl {
			return course.target(), nil
		}
	}

	parsed, err := url.Parse(nameOrUrl)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return harvest.CourseTarget{}, fmt.Errorf("no course named %q in config", nameOrUrl)
	}
	target := harvest.CourseTarget{Url: nameOrUrl, Token: c.Token}
	return target, target.Validate()
}

func (c Config) RodOptions() engine.RodOptions {
	return engine.RodOptions{
		ControlUrl:     c.Browser.ControlUrl,
		Bin:            c.Browser.Bin,
		Headless:       *c.Browser.Headless,
		ViewportWidth:  c.Browser.ViewportWidth,
		ViewportHeight: c.Browser.ViewportHeight,
	}
}

func (c Config) RendererOptions() harvest.RendererOptions {
	opts := harvest.DefaultRendererOptions()
	opts.IdleTimeout = seconds(c.Timing.IdleTimeout, opts.IdleTimeout)
	opts.SettleDelay = seconds(c.Timing.SettleDelay, opts.SettleDelay)
	return opts
}

func (c Config) DriverOptions() harvest.DriverOptions {
	opts := harvest.DefaultDriverOptions()
	opts.NavigationTimeout = seconds(c.Timing.NavigationTimeout, opts.NavigationTimeout)
	if c.Probe.Enabled {
		opts.Probe = c.ProbeOptions()
	}
	if c.Timing.LessonsPerMinute > 0 {
		interval := time.Duration(float64(time.Minute) / c.Timing.LessonsPerMinute)
		opts.Pace = rate.NewLimiter(rate.Every(interval), 1)
	}
	return opts
}

func (c Config) ProbeOptions() *harvest.ProbeOptions {
	return &harvest.ProbeOptions{
		MaxId:                  c.Probe.MaxId,
		MaxConsecutiveFailures: c.Probe.MaxConsecutiveFailures,
	}
}

func (c Config) CoursePause() time.Duration {
	return seconds(c.Timing.CoursePause, 30*time.Second)
}
