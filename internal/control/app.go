// Package control wires the gateway together and manages its lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openfit/relay/internal/core/config"
	"github.com/openfit/relay/internal/health"
	"github.com/openfit/relay/internal/infra/nutrition"
	redisclient "github.com/openfit/relay/internal/infra/redis"
	"github.com/openfit/relay/internal/infra/storage"
	"github.com/openfit/relay/internal/infra/storage/memory"
	"github.com/openfit/relay/internal/infra/storage/postgres"
	"github.com/openfit/relay/internal/infra/storage/sqlite"
	"github.com/openfit/relay/internal/observe/report"
	"github.com/openfit/relay/internal/offline"
	"github.com/openfit/relay/internal/resilience"
	"github.com/openfit/relay/internal/resilience/classify"
)

// Config holds the application configuration.
type Config struct {
	Port         int
	Resilience   resilience.Config
	Connectivity config.ConnectivityConfig
	Storage      config.StorageConfig
	Redis        redisclient.Config
	Nutrition    nutrition.Config
}

// App is the assembled gateway: resilience pipeline, connectivity monitor,
// offline queue and health server.
type App struct {
	cfg Config
	log *slog.Logger

	reporter     *report.Reporter
	pipeline     *resilience.Pipeline
	connectivity *offline.Monitor
	queue        *offline.Queue
	nutrition    *nutrition.Client
	healthServer *health.Server

	httpClient *http.Client

	sqliteDB    *sqlite.DB
	pgDB        *postgres.DB
	redisClient *redisclient.Client
	grpcProbers []*offline.GRPCProber

	cancel context.CancelFunc
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	log := slog.Default()
	a := &App{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{},
	}

	// 1. Durable queue storage
	repo, err := a.initStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	// 2. Connectivity monitor
	probers := make([]offline.Prober, 0, len(cfg.Connectivity.HTTPProbes)+len(cfg.Connectivity.GRPCProbes))
	for _, url := range cfg.Connectivity.HTTPProbes {
		probers = append(probers, offline.NewHTTPProber(url, 5*time.Second))
	}
	for _, probe := range cfg.Connectivity.GRPCProbes {
		p, err := offline.NewGRPCProber(probe.Target, probe.Service)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("failed to init grpc prober: %w", err)
		}
		a.grpcProbers = append(a.grpcProbers, p)
		probers = append(probers, p)
	}
	a.connectivity = offline.NewMonitor(probers, cfg.Connectivity.ProbeInterval, log)

	// 3. Resilience pipeline
	a.reporter = report.New(log)
	a.pipeline, err = resilience.NewPipeline(cfg.Resilience, a.reporter,
		classify.WithLogger(log),
		classify.WithConnectivity(a.connectivity.Online),
	)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// 4. Offline queue with the built-in HTTP replay handler
	a.queue = offline.NewQueue(repo, log)
	a.queue.Register(OpTypeHTTPRequest, a.replayHTTPRequest)

	// 5. Upstream clients
	a.nutrition = nutrition.NewClient(cfg.Nutrition, a.pipeline)

	// 6. Health server
	healthMon := health.NewMonitor(a.connectivity, a.queue, a.pipeline.Breaker, a.reporter)
	a.healthServer = health.NewServer(healthMon, cfg.Port)

	return a, nil
}

func (a *App) initStorage(cfg config.StorageConfig) (storage.QueueRepository, error) {
	switch cfg.Backend {
	case "postgres":
		db, err := postgres.NewDB(context.Background(), cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to init postgres: %w", err)
		}
		a.pgDB = db
		a.log.Info("Using PostgreSQL queue storage")
		return postgres.NewQueueRepo(db), nil
	case "redis":
		client, err := redisclient.NewClient(a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		a.log.Info("Using Redis queue storage")
		return redisclient.NewQueueRepo(client), nil
	case "memory":
		a.log.Info("Using in-memory queue storage (not durable)")
		return memory.NewQueueRepo(), nil
	default:
		db, err := sqlite.Open(context.Background(), cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to init sqlite: %w", err)
		}
		a.sqliteDB = db
		a.log.Info("Using SQLite queue storage", "path", cfg.SQLite.Path)
		return sqlite.NewQueueRepo(db), nil
	}
}

// Start launches the monitor, the queue drainer and the health server.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.connectivity.Start(ctx)
	go a.queue.Run(ctx, a.connectivity)

	// Replay anything left over from a previous run.
	if a.connectivity.Online() {
		go func() {
			if err := a.queue.Drain(ctx); err != nil {
				a.log.Error("startup drain failed", "error", err)
			}
		}()
	}

	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("health server failed", "error", err)
		}
	}()

	a.log.Info("relay started", "port", a.cfg.Port)
	return nil
}

// Stop shuts the gateway down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.connectivity.Stop()

	var firstErr error
	if err := a.healthServer.Stop(ctx); err != nil {
		firstErr = err
	}
	a.closeAll()
	return firstErr
}

// Nutrition returns the resilient nutrition API client.
func (a *App) Nutrition() *nutrition.Client {
	return a.nutrition
}

// Queue returns the offline queue for registering replay handlers and
// enqueuing deferred operations.
func (a *App) Queue() *offline.Queue {
	return a.queue
}

// Reporter returns the surfaced-error observable.
func (a *App) Reporter() *report.Reporter {
	return a.reporter
}

// Connectivity returns the connectivity observable.
func (a *App) Connectivity() *offline.Monitor {
	return a.connectivity
}

func (a *App) closeAll() {
	if a.sqliteDB != nil {
		_ = a.sqliteDB.Close()
	}
	if a.pgDB != nil {
		_ = a.pgDB.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	for _, p := range a.grpcProbers {
		_ = p.Close()
	}
}
