// Package server wires configuration, storage, blob store, services, the
// purge scheduler and the gRPC transport into a runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/drivekeeper/internal/logging"
	"github.com/dmitrijs2005/drivekeeper/internal/server/access"
	"github.com/dmitrijs2005/drivekeeper/internal/server/blobstore"
	"github.com/dmitrijs2005/drivekeeper/internal/server/config"
	"github.com/dmitrijs2005/drivekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/drivekeeper/internal/server/scheduler"
	"github.com/dmitrijs2005/drivekeeper/internal/server/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	gs "github.com/dmitrijs2005/drivekeeper/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	redis     *redis.Client
	grpc      *gs.GRPCServer
	scheduler *scheduler.PurgeScheduler
}

// NewApp opens the database, applies migrations and builds every component.
// Callers must Close the returned App.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, os.Stdout)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db}

	if err := app.build(ctx); err != nil {
		return nil, multierr.Append(err, app.Close())
	}
	return app, nil
}

func (app *App) build(ctx context.Context) error {
	c := app.config

	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return err
	}

	store, err := blobstore.New(ctx, c.BlobBackend, blobstore.Options{
		Bucket:           c.S3Bucket,
		Region:           c.S3Region,
		AccessKey:        c.S3RootUser,
		SecretKey:        c.S3RootPassword,
		Endpoint:         c.S3BaseEndpoint,
		UploadValidity:   c.UploadURLValidity,
		DownloadValidity: c.DownloadURLValidity,
	})
	if err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}
	blobs := blobstore.NewRetryingStore(store, c.BlobDeleteMaxRetries, c.RetryBaseDelay, app.logger)

	guard := access.NewGuard(app.db, rm, app.logger)
	files := services.NewFileService(app.db, rm, guard, blobs, app.logger)
	favorites := services.NewFavoriteService(app.db, rm, guard, app.logger)
	users := services.NewUserService(app.db, rm, guard)

	purger := services.NewPurger(app.db, rm, blobs, services.PurgeOptions{
		Concurrency: c.PurgeConcurrency,
		MaxRetries:  c.BlobDeleteMaxRetries,
		RetryBase:   c.RetryBaseDelay,
	}, app.logger)

	var locker scheduler.Locker
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		locker = scheduler.NewRedisLocker(app.redis)
	}

	app.scheduler = scheduler.New(purger, locker, c.PurgeInterval, c.PurgeRunTimeout, app.logger)
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, files, favorites, users, c.SecretKey)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves gRPC and schedules purges until ctx is cancelled or a signal
// arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start: %w", err)
	}
	defer app.scheduler.Stop()

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.grpc.Run(ctx); err != nil {
			app.logger.Error(ctx, "grpc server failed", "error", err)
			runErr = err
			cancelFunc()
		}
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")

	return runErr
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	var err error
	if app.redis != nil {
		err = multierr.Append(err, app.redis.Close())
	}
	return multierr.Append(err, app.db.Close())
}
