// Command catalogd wires the catalog core's ambient and domain stacks
// together and runs its background workers: the task queue pool and the
// event dispatcher. It deliberately does not start an HTTP server — the
// REST routing surface is out of scope per spec.md's Non-goals; catalogd is
// the process shape a routing layer would be added to, not the routing
// layer itself.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lakekeeper/catalog/internal/authz"
	"github.com/lakekeeper/catalog/internal/cache"
	"github.com/lakekeeper/catalog/internal/catalog"
	"github.com/lakekeeper/catalog/internal/config"
	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/events"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/platform/mpg"
	"github.com/lakekeeper/catalog/internal/platform/mredis"
	"github.com/lakekeeper/catalog/internal/secrets"
	"github.com/lakekeeper/catalog/internal/storage"
	"github.com/lakekeeper/catalog/internal/tasks"
)

func main() {
	logger, err := mlog.NewZapLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx = mlog.ContextWithLogger(ctx, logger)

	if err := run(ctx, logger); err != nil {
		logger.Errorf("catalogd: fatal: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger mlog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pg := &mpg.Connection{ConnectionString: cfg.PostgresDSN, Logger: logger, MaxOpenConns: 20, MaxIdleConns: 5}

	db, err := pg.GetDB(ctx)
	if err != nil {
		return err
	}
	defer pg.Close() //nolint:errcheck

	caches := cache.New(cfg)

	cronLock := tasks.DistributedLock(tasks.NoopLock{})

	if cfg.RedisAddr != "" {
		redisConn := &mredis.Connection{Addr: cfg.RedisAddr, Logger: logger}

		if _, err := redisConn.GetClient(ctx); err != nil {
			return err
		}

		defer redisConn.Close() //nolint:errcheck

		bus := cache.NewBus(redisConn, logger)
		go bus.Run(ctx, caches) //nolint:errcheck

		cronLock = tasks.NewRedisLock(redisConn)
	}

	authorizer := authz.AllowAllAuthorizer{} // replaced by a real Authorizer at integration time; see DESIGN.md
	gate := authz.New(authorizer)

	var listeners []events.Listener
	if cfg.AMQPURL != "" {
		amqpListener := events.NewAMQPListener(cfg.AMQPURL, "lakekeeper.catalog", logger)
		defer amqpListener.Close() //nolint:errcheck

		listeners = append(listeners, amqpListener)
	} else {
		listeners = append(listeners, events.NoopListener{})
	}

	dispatcher := events.NewDispatcher(logger, cfg.EventSendTimeout, cfg.LogCloudEvents, listeners...)
	go dispatcher.Run(ctx)

	secretStore := secrets.NewInMemoryStore()

	uc := &catalog.UseCase{
		Warehouses: catalog.NewPostgresWarehouseRepository(db),
		Namespaces: catalog.NewPostgresNamespaceRepository(db),
		Tabulars:   catalog.NewPostgresTabularRepository(db),
		Cache:      caches,
		Gate:       gate,
		Store:      storage.LocalProfile{Root: os.TempDir()},
		Secrets:    secretStore,
		Dispatcher: dispatcher,
		Config:     cfg,
	}

	taskRepo := tasks.NewPostgresRepository(db)
	pool := tasks.NewPool(
		tasks.NewWorker(taskRepo, logger, domain.TaskQueueTabularExpiration, tabularExpirationHandler(uc), cfg.TaskPollInterval, cfg.TaskStaleAfter),
		tasks.NewWorker(taskRepo, logger, domain.TaskQueueTabularPurge, tabularPurgeHandler(uc), cfg.TaskPollInterval, cfg.TaskStaleAfter),
		tasks.NewWorker(taskRepo, logger, domain.TaskQueueTabularExpirationSweep, tabularExpirationSweepHandler(uc, taskRepo), cfg.TaskPollInterval, cfg.TaskStaleAfter),
	)
	pool.Start(ctx)

	cronDriver := tasks.NewCronDriver(tabularExpirationSweepJobs(), taskRepo, tasks.NewStandardCron(), cronLock, logger, cfg.TaskPollInterval)
	go cronDriver.Run(ctx)

	logger.Info("catalogd: started")

	<-ctx.Done()

	logger.Info("catalogd: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})

	go func() {
		pool.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("catalogd: shutdown timed out waiting for workers")
	}

	return nil
}
