package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stride-app/stride/internal/api"
	"github.com/stride-app/stride/internal/app/engagement"
	"github.com/stride-app/stride/internal/domain"
	"github.com/stride-app/stride/internal/health"
	"github.com/stride-app/stride/internal/infra/lock"
	"github.com/stride-app/stride/internal/infra/postgres"
	"github.com/stride-app/stride/internal/infra/redislock"
	"github.com/stride-app/stride/internal/infra/sqlite"
)

// Store is a storage backend the daemon can probe and close.
type Store interface {
	domain.Store
	health.Pinger
	Close() error
}

// Locker is a lock backend the daemon can probe.
type Locker interface {
	domain.Locker
	health.Pinger
}

// Daemon is the core Stride runtime. It wires together all services.
type Daemon struct {
	Config Config
	Logger *slog.Logger
	Store  Store
	Locker Locker
	Clock  *engagement.SystemClock
	Engine *engagement.Engine
	Server *api.Server
	Health *health.Checker

	redis  *redislock.Locker
	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(context.Background(), cfg, NewLogger(cfg.Logging, os.Stderr))
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(ctx context.Context, cfg Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{Config: cfg, Logger: logger}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	d.Store = store

	switch cfg.Lock.Backend {
	case LockRedis:
		rcfg := redislock.DefaultConfig()
		rcfg.Addr = cfg.Lock.RedisAddr
		rcfg.Password = cfg.Lock.RedisPassword
		rcfg.DB = cfg.Lock.RedisDB
		rcfg.TTL = parseDuration(cfg.Lock.TTL, rcfg.TTL)
		rl, err := redislock.Dial(ctx, rcfg, logger)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		d.redis = rl
		d.Locker = rl
	default:
		d.Locker = lock.NewKeyed()
	}

	clock, err := engagement.NewSystemClock(cfg.Clock.Timezone)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Clock = clock

	d.Engine = engagement.NewEngine(store, d.Locker, clock, logger)

	checks := []health.Check{
		health.PingCheck("store", store),
		health.PingCheck("lock", d.Locker),
	}
	if cfg.Storage.Backend == StorageSQLite {
		checks = append(checks, health.DirCheck("data_dir", cfg.Storage.Dir))
	}
	d.Health = health.NewChecker(health.DefaultInterval, logger, checks...)

	srv := api.NewServer(store, d.Engine, clock, logger)
	srv.SetHealth(d.Health)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	logger.Info("daemon initialized",
		"storage", cfg.Storage.Backend,
		"lock", cfg.Lock.Backend,
		"timezone", clock.Location().String(),
	)
	return d, nil
}

func openStore(ctx context.Context, cfg StorageConfig) (Store, error) {
	switch cfg.Backend {
	case StoragePostgres:
		pcfg := postgres.DefaultConfig()
		pcfg.URL = cfg.PostgresURL
		s, err := postgres.Open(ctx, pcfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	default:
		dir := cfg.Dir
		if dir == "" {
			dir = strideHome()
		}
		db, err := sqlite.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}
}

// Addr is the listen address from config.
func (d *Daemon) Addr() string {
	return fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
}

// Serve runs the HTTP server and the health loop until SIGINT, SIGTERM or
// ctx cancellation, then shuts down gracefully.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, d.cancel = context.WithCancel(ctx)

	httpServer := &http.Server{
		Addr:         d.Addr(),
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Health.Run(gctx)
		return nil
	})

	g.Go(func() error {
		d.Logger.Info("serving", "addr", "http://"+d.Addr(), "metrics", d.Config.Telemetry.Prometheus)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		d.Logger.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	d.Close()
	return err
}

// Close shuts down all daemon resources. Safe to call more than once.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Logger.Warn("close redis", "error", err)
		}
		d.redis = nil
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.Warn("close store", "error", err)
		}
		d.Store = nil
	}
}
