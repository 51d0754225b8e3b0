package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"hermes/internal/adapters/catalog"
	chclient "hermes/internal/adapters/clickhouse"
	"hermes/internal/adapters/config"
	errnoop "hermes/internal/adapters/errors/noop"
	"hermes/internal/adapters/errors/sentry"
	"hermes/internal/adapters/kafka"
	pgclient "hermes/internal/adapters/postgres"
	redisclient "hermes/internal/adapters/redis"
	"hermes/internal/domain/correlation"
	"hermes/internal/metrics"
	"hermes/internal/pipeline"
	chrepo "hermes/internal/repository/clickhouse"
	pgrepo "hermes/internal/repository/postgres"
	biassvc "hermes/internal/services/bias"
	corrsvc "hermes/internal/services/correlation"
	diagsvc "hermes/internal/services/diagnosis"
	qualitysvc "hermes/internal/services/quality"
	surprisesvc "hermes/internal/services/surprise"
	"hermes/internal/services/transform"
	"hermes/internal/workers"
	signalworkers "hermes/internal/workers/signal"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Infrastructure
	log.Info("Connecting to PostgreSQL...")
	pg, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pg.Close()

	log.Info("Connecting to ClickHouse...")
	ch, err := chclient.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("failed to connect clickhouse: %v", err)
	}
	defer ch.Close()

	log.Info("Connecting to Redis...")
	rds, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rds.Close()

	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	defer producer.Close()

	// Repositories
	obsRepo := pgrepo.NewObservationRepository(pg.DB())
	scoreRepo := pgrepo.NewCurrencyScoreRepository(pg.DB())
	corrRepo := pgrepo.NewCorrelationRepository(pg.DB())
	biasRepo := pgrepo.NewBiasRepository(pg.DB())
	eventRepo := pgrepo.NewEventRepository(pg.DB())
	priceRepo := chrepo.NewPriceRepository(ch.Conn())

	// Engines
	cat := catalog.NewDefault()
	limiter := rate.NewLimiter(rate.Limit(cfg.Engine.RepoRateLimit), 1)
	layer := transform.NewLayer(obsRepo, limiter)

	shortWindow := correlation.Window{
		Name:        cfg.Engine.ShortWindowName,
		TradingDays: cfg.Engine.ShortWindowDays,
		MinObs:      cfg.Engine.ShortWindowMin,
	}
	longWindow := correlation.Window{
		Name:        cfg.Engine.LongWindowName,
		TradingDays: cfg.Engine.LongWindowDays,
		MinObs:      cfg.Engine.LongWindowMin,
	}

	diagEngine := diagsvc.NewEngine(cat, layer, cfg.Engine.MinUsableIndicators)
	corrEngine := corrsvc.NewEngine(
		priceRepo,
		cfg.Engine.Benchmark,
		shortWindow, longWindow,
		cfg.Engine.BenchmarkMaxAge,
		cfg.Engine.PriceLookbackDays,
	)

	pairs := biassvc.PairsFor(cfg.Engine.Symbols)
	biasEngine := biassvc.NewEngine(
		pairs,
		longWindow.Name,
		cfg.Engine.DirectionThreshold,
		cfg.Engine.ConfidenceFloor,
		cfg.Engine.MinDrivers,
	)

	checker := qualitysvc.NewChecker(
		cfg.Engine.ConfidenceFloor,
		cfg.Engine.MinDrivers,
		[]correlation.Window{shortWindow, longWindow},
		cfg.Engine.BenchmarkMaxAge,
	)

	runner := pipeline.NewRunner(
		pipeline.Deps{
			DiagEngine: diagEngine,
			CorrEngine: corrEngine,
			BiasEngine: biasEngine,
			Checker:    checker,
			DiagRepo:   scoreRepo,
			CorrRepo:   corrRepo,
			BiasRepo:   biasRepo,
			EventRepo:  eventRepo,
			Locker:     rds,
			Cache:      rds,
			Producer:   producer,
		},
		pipeline.Options{
			Symbols:          cfg.Engine.Symbols,
			Pairs:            pairs,
			Benchmark:        cfg.Engine.Benchmark,
			MaxConcurrency:   cfg.Engine.MaxConcurrency,
			SurpriseValidity: cfg.Engine.SurpriseValidity,
			LockTTL:          cfg.Engine.RunLockTTL,
		},
	)

	surpriseEngine := surprisesvc.NewEngine(eventRepo, cat, runner)

	// Workers
	pipelineWorker := signalworkers.NewPipelineWorker(
		runner,
		cfg.Workers.PipelineInterval,
		cfg.Workers.PipelineEnabled,
	)
	releaseWatcher := signalworkers.NewReleaseWatcher(
		eventRepo,
		signalworkers.NewObservationActualSource(obsRepo, cat),
		surpriseEngine,
		producer,
		cfg.Workers.ReleaseWatcherInterval,
		cfg.Workers.ReleaseWatchWindow,
		cfg.Workers.ReleaseWatcherEnabled,
	)

	registry := workers.NewRegistry()
	scheduler := workers.NewScheduler()
	for _, w := range []workers.WorkerWithHealth{pipelineWorker, releaseWatcher} {
		if err := registry.Register(w); err != nil {
			log.Fatalf("failed to register worker: %v", err)
		}
		scheduler.RegisterWorker(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	metricsServer := startMetricsServer(cfg, pg, ch, registry, log)

	log.Info("System initialized successfully")

	waitForShutdown(cancel, scheduler, metricsServer, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// startMetricsServer registers collectors and serves /metrics and /health
func startMetricsServer(cfg *config.Config, pg *pgclient.Client, ch *chclient.Client, registry *workers.Registry, log *logger.Logger) *http.Server {
	if !cfg.Metrics.Enabled {
		log.Info("Metrics disabled")
		return nil
	}

	metrics.Init()
	metrics.RegisterCustomCollector(metrics.NewCustomCollector(log, pg.DB(), ch.Conn()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler(registry))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	go func() {
		log.Infof("Metrics server listening on :%d", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()

	return server
}

type workerHealthView struct {
	Enabled     bool      `json:"enabled"`
	LastRun     time.Time `json:"last_run"`
	RunCount    int64     `json:"run_count"`
	ErrorCount  int64     `json:"error_count"`
	AvgDuration string    `json:"avg_duration"`
	LastError   string    `json:"last_error,omitempty"`
}

// healthHandler reports per-worker run accounting. A worker that has not
// run within twice the slowest registered interval is degraded.
func healthHandler(registry *workers.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views := make(map[string]workerHealthView)
		maxAge := time.Duration(0)
		for name, h := range registry.GetAllHealth() {
			view := workerHealthView{
				Enabled:     h.Enabled,
				LastRun:     h.LastRun,
				RunCount:    h.RunCount,
				ErrorCount:  h.ErrorCount,
				AvgDuration: h.AvgDuration.String(),
			}
			if h.LastError != nil {
				view.LastError = h.LastError.Error()
			}
			views[name] = view

			if worker, ok := registry.Get(name); ok && 2*worker.Interval() > maxAge {
				maxAge = 2 * worker.Interval()
			}
		}

		unhealthy := registry.Unhealthy(maxAge)

		w.Header().Set("Content-Type", "application/json")
		if len(unhealthy) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"workers":   views,
			"unhealthy": unhealthy,
		})
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM and drains components
func waitForShutdown(
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	metricsServer *http.Server,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Infof("Received signal %s, shutting down...", sig)

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Errorf("Scheduler shutdown error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Metrics server shutdown error: %v", err)
		}
	}

	if err := errorTracker.Flush(shutdownCtx); err != nil {
		log.Errorf("Error tracker flush failed: %v", err)
	}
	log.Info("Shutdown complete")
}
