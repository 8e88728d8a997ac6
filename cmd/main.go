package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/catalog"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/http/api"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/http/swagger"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/probe"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/pushover"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/search"
	app "github.com/RyDizz214/snappier-server-docker/internal/app"
	"github.com/RyDizz214/snappier-server-docker/internal/config"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/dedupe"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/guide"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Custom system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> .env/env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWithOptions(logger.Options{
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}); err != nil {
		os.Stderr.WriteString("failed to configure logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := buildService(cfg, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService wires every collaborator from configuration.
func buildService(cfg *config.Config, log logger.Logger) *app.Service {
	fs := afero.NewOsFs()
	loc, _ := cfg.Location() // validated by config.Load

	store := guide.NewStore(cfg.EPGCachePath,
		guide.WithFs(fs),
		guide.WithIndexCeiling(cfg.EPGIndexMaxSize, cfg.EPGIndexShrinkDivisor),
	)
	matcher := guide.NewMatcher(store, guide.WithGoodEnough(cfg.MatchGoodEnoughScore))

	resolver := search.NewResolver(
		search.WithEnabled(cfg.APIEnabled),
		search.WithBaseURL(cfg.APIBase),
		search.WithAPIKey(cfg.APIKey),
		search.WithTimeout(cfg.APITimeout),
		search.WithLimit(cfg.APISearchLimit),
		search.WithRateLimit(cfg.APIRatePerSec),
		search.WithGoodEnough(cfg.MatchGoodEnoughScore),
	)

	tmdb := catalog.NewClient(
		catalog.WithEnabled(cfg.TMDBEnabled),
		catalog.WithAPIKey(cfg.TMDBAPIKey),
		catalog.WithBaseURL(cfg.TMDBBase),
		catalog.WithTimeout(cfg.TMDBTimeout),
		catalog.WithLanguage(cfg.TMDBLanguage),
		catalog.WithCacheSize(cfg.TMDBCacheMaxSize),
		catalog.WithRateLimit(cfg.TMDBRatePerSec),
	)

	sender := pushover.NewClient(
		pushover.WithCredentials(cfg.PushoverUser, cfg.PushoverToken),
		pushover.WithEndpoint(cfg.PushoverURL),
		pushover.WithTimeout(cfg.PushTimeout),
		pushover.WithRetry(cfg.RetryAttempts, cfg.RetryDelay),
		pushover.WithFs(fs),
	)

	prober := probe.NewProber(
		probe.WithTimeout(cfg.ProbeTimeout),
		probe.WithMethod(cfg.ProbeMethod),
		probe.WithAllowHTTPHosts(cfg.AllowHTTPHostList()),
		probe.WithCacheSize(cfg.HTTPSCacheMaxSize),
	)
	preflight := probe.NewPreflight(fs, prober,
		[]string{cfg.SchedulesPath, cfg.EPGCachePath}, cfg.PreflightLimit, cfg.ProbeWorkers)

	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithDeduper(dedupe.NewInMemoryDeduper(
			dedupe.WithWindow(cfg.DedupWindow),
			dedupe.WithMaxSize(cfg.DedupMaxEntries),
		)),
		app.WithGuide(store, matcher),
		app.WithResolver(resolver),
		app.WithCatalog(tmdb),
		app.WithSender(sender),
		app.WithProber(prober),
		app.WithPreflight(preflight),
		app.WithLocation(loc),
		app.WithTitlePrefix(cfg.TitlePrefix),
		app.WithDescLimit(cfg.DescLimit),
	)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that are not updated on the hot path.
func updateServiceMetrics(svc *app.Service) {
	// GetStats refreshes the dedup gauge itself.
	_ = svc.GetStats()
	metrics.UpdateProbeCacheSize(svc.Health().CacheStats.HTTPSCacheSize)
}
