package commands

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"courseharvest/internal/components/chrono"
	"courseharvest/internal/components/engine"
	"courseharvest/internal/components/telemetry"
	"courseharvest/internal/harvest"
	"courseharvest/internal/storefront"
	"courseharvest/lib/serviceutil"
)

// app is what every command needs: configuration, telemetry and a clock.
type app struct {
	cfg       Config
	tel       telemetry.API
	clock     chrono.API
	telemetry telemetry.Telemetry
}

func setup(ctx context.Context) app {
	env, err := loadEnv()
	if err != nil {
		serviceutil.Fatal("failed to read environment", err)
	}
	cfg, err := LoadConfig(*configPath, env)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	otel, err := telemetry.SetupFromEnv(ctx, "courseharvest")
	if err != nil {
		slog.Warn("telemetry export disabled", "err", err)
	}

	return app{
		cfg:       cfg,
		tel:       telemetry.SlogAPI{},
		clock:     chrono.StandardImpl{},
		telemetry: otel,
	}
}

func (a app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.telemetry.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}

func (a app) launch(ctx context.Context) *engine.RodSession {
	session, err := engine.LaunchRod(ctx, a.cfg.RodOptions(), a.tel)
	if err != nil {
		serviceutil.Fatal("failed to start browser", err)
	}
	return session
}

func (a app) renderer() harvest.Renderer {
	return harvest.NewRenderer(a.cfg.RendererOptions(), a.clock, a.tel)
}

// storefrontClient returns a static client for the host of pageUrl and a
// function that releases its cache.
func (a app) storefrontClient(pageUrl string) (*storefront.Client, func()) {
	parsed, err := url.Parse(pageUrl)
	if err != nil {
		serviceutil.Fatal("invalid course url", err)
	}
	base := parsed.Scheme + "://" + parsed.Host

	opts := storefront.ClientOptions{
		Timeout:           seconds(a.cfg.Timing.NavigationTimeout, 30*time.Second),
		RequestsPerSecond: a.cfg.Storefront.RequestsPerSecond,
		UserAgent:         a.cfg.Storefront.UserAgent,
		CacheLifetime:     time.Duration(a.cfg.Storefront.CacheLifetime * float64(time.Minute)),
	}
	release := func() {}
	if a.cfg.Storefront.CacheDir != "" {
		cache, err := storefront.OpenCache(a.cfg.Storefront.CacheDir)
		if err != nil {
			serviceutil.Fatal("failed to open page cache", err)
		}
		opts.Cache = cache
		release = func() {
			cache.Close()
		}
	}

	client, err := storefront.NewClient(base, opts, a.tel)
	if err != nil {
		release()
		serviceutil.Fatal("failed to create storefront client", err)
	}
	return client, release
}
