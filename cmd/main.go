package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cohort/internal/adapters/http/api"
	"github.com/okian/cohort/internal/adapters/http/swagger"
	"github.com/okian/cohort/internal/adapters/repository"
	app "github.com/okian/cohort/internal/app"
	"github.com/okian/cohort/internal/config"
	"github.com/okian/cohort/internal/domain/assignment"
	"github.com/okian/cohort/internal/domain/inflight"
	"github.com/okian/cohort/internal/domain/matching"
	"github.com/okian/cohort/pkg/logger"
	"github.com/okian/cohort/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	maxListedRuns          = 100
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build components", logger.Error(err))
		return
	}
	defer comps.Close()

	svc := newService(cfg, comps, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop(context.WithoutCancel(ctx))

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, loggerInstance.Named("http")),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(fmt.Errorf("%w: %w", api.ErrServe, err)))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// components are the storage backends selected by configuration.
type components struct {
	source  repository.Source
	sink    repository.Sink
	guard   inflight.Guard
	closers []io.Closer
}

// Close releases every opened backend.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
}

// buildComponents selects Postgres when a database url is configured and the
// redis guard when a redis address is configured, falling back to memory.
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{}

	if cfg.DatabaseURL != "" {
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pg := repository.NewPostgres(db)
		c.closers = append(c.closers, pg)
		if err := pg.InitSchema(ctx); err != nil {
			c.Close()
			return nil, err
		}
		c.source, c.sink = pg, pg
	} else {
		mem := repository.NewMemorySource()
		c.source, c.sink = mem, mem
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			c.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		c.closers = append(c.closers, client)
		c.guard = inflight.NewRedisGuard(client, inflight.WithTTL(cfg.RedisLockTTL()))
	} else {
		c.guard = inflight.NewMemoryGuard()
	}
	return c, nil
}

func newService(cfg *config.Config, comps *components, log logger.Logger) *app.Service {
	engine := assignment.New(
		assignment.WithWeights(assignment.Weights{
			Preference: cfg.WeightPreference,
			Cohesion:   cfg.WeightCohesion,
			Experience: cfg.WeightExperience,
		}),
		assignment.WithTimeLimit(cfg.SolverTimeLimit()),
		assignment.WithResolver(matching.NewFuzzyResolver(matching.WithThreshold(cfg.MatchThreshold))),
		assignment.WithLogger(log.Named("engine")),
	)
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithShuffleSeed(cfg.ShuffleSeed),
		app.WithSource(comps.source),
		app.WithSink(comps.sink),
		app.WithGuard(comps.guard),
		app.WithRunStore(repository.NewRunMemoryStore(repository.WithMaxRuns(cfg.MaxRuns))),
		app.WithEngine(engine),
	)
}

// newHandler registers every route on a fresh mux.
func newHandler(ctx context.Context, svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, maxListedRuns).Register(ctx, mux)
	return api.LoggingMiddleware(mux, log)
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
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue and worker gauges.
			_ = svc.GetStats()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
