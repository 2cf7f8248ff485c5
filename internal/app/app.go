// Package app wires the appliance monitor together: configuration, logger,
// optional Redis history, plug clients, the polling loop, notifications,
// and the optional status server.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/hometools/internal/appliance"
	"github.com/MrSnakeDoc/hometools/internal/config"
	"github.com/MrSnakeDoc/hometools/internal/httpserver"
	"github.com/MrSnakeDoc/hometools/internal/kasa"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	"github.com/MrSnakeDoc/hometools/internal/notify"
	"github.com/MrSnakeDoc/hometools/internal/redis"
	"github.com/MrSnakeDoc/hometools/internal/scheduler"
	storeredis "github.com/MrSnakeDoc/hometools/internal/store/redis"
	"github.com/MrSnakeDoc/hometools/internal/version"
)

// App is the assembled monitor daemon.
type App struct {
	cfg    *config.Monitor
	logger logger.Logger

	targets  []scheduler.Target
	monitors []*appliance.Monitor
	loop     *scheduler.MonitorLoop
	server   *httpserver.Server
	rdb      *goredis.Client
}

// New builds the daemon from environment configuration. It fails fast on
// anything that would make the monitor useless at runtime.
func New() (*App, error) {
	cfg := config.LoadMonitor()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	configs, err := loadAppliances(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: log}

	for _, applianceCfg := range configs {
		monitor := appliance.NewMonitor(applianceCfg, log)
		a.monitors = append(a.monitors, monitor)
		a.targets = append(a.targets, scheduler.Target{
			Monitor: monitor,
			Reader:  kasa.NewClient(applianceCfg.Addr),
		})
		log.Info("👀 watching appliance",
			logger.String("appliance", applianceCfg.Name),
			logger.String("addr", applianceCfg.Addr))
	}

	dispatcher := notify.NewDispatcherFromEnv(log)

	var history scheduler.HistoryStore
	var cyclesFn func(ctx context.Context, n int) ([]storeredis.CycleRecord, error)
	if cfg.RedisAddr != "" {
		rdb, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		store := storeredis.NewHistory(rdb, log)
		history = store
		cyclesFn = store.RecentCycles
	} else {
		log.Info("cycle history disabled, no redis address configured")
	}

	a.loop = scheduler.NewMonitorLoop(a.targets, cfg.CheckInterval, dispatcher, history, log)

	if cfg.ListenPort != "" {
		a.server = httpserver.New(cfg.ListenPort, httpserver.Deps{
			Logger:    log,
			Version:   version.Version,
			StartTime: time.Now(),
			Status:    a.statuses,
			Cycles:    cyclesFn,
		})
	}

	return a, nil
}

func loadAppliances(cfg *config.Monitor) ([]appliance.Config, error) {
	if cfg.ConfigFile != "" {
		configs, err := appliance.LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", cfg.ConfigFile, err)
		}
		return configs, nil
	}
	return appliance.FromEnv()
}

func (a *App) statuses() []appliance.Status {
	statuses := make([]appliance.Status, 0, len(a.monitors))
	for _, m := range a.monitors {
		statuses = append(statuses, m.Snapshot())
	}
	return statuses
}

// Run starts everything and blocks until SIGINT/SIGTERM or a fatal server
// error, then shuts down in order: loop first, then the status server.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("🚀 appliancemon starting",
		logger.String("version", version.Version),
		logger.Duration("check_interval", a.cfg.CheckInterval))

	a.loop.Start(ctx)

	var serverErr <-chan error
	if a.server != nil {
		serverErr = a.server.Start()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ shutdown signal received")
	case err := <-serverErr:
		a.logger.Error("❌ status server failed", logger.Error(err))
		stop()
	}

	a.loop.Stop()

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			a.logger.Warn("status server shutdown incomplete", logger.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("redis close failed", logger.Error(err))
		}
	}

	a.logger.Info("✅ appliancemon stopped")
	_ = a.logger.Sync()
	return nil
}
