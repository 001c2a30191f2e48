package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/okian/proctor/internal/adapters/http/api"
	"github.com/okian/proctor/internal/adapters/http/site"
	"github.com/okian/proctor/internal/adapters/http/swagger"
	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/config"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

// HTTP server timeout constants. WriteTimeout stays zero so websocket
// streams are not cut off.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	var logOpts []logger.Option
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logger.WithFile(cfg.LogFile))
	}
	if err := logger.Init(logOpts...); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited with error", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop only releases the signal handler
	}
	_ = logger.Sync()
}

// run starts the service and the HTTP server and blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc := service.New(service.WithConfig(cfg), service.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(svc),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	// Live sessions are archived before the listener goes away.
	runErr = multierr.Append(runErr, svc.Stop(shutdownCtx))
	runErr = multierr.Append(runErr, srv.Shutdown(shutdownCtx))

	log.Info(ctx, "server stopped")
	return runErr
}

// newMux wires every HTTP surface onto one mux.
func newMux(svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	swagger.Register(mux)
	site.Register(mux)
	return mux
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
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

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
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
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if archived, ok := stats["archivedSessions"].(int); ok {
		metrics.UpdateArchivedReports(archived)
	}
	if clients, ok := stats["streamClients"].(int); ok {
		metrics.UpdateStreamClients(clients)
	}
	if workers, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workers)
	}
}
