// Package server wires the gateway together: database and migrations,
// object storage, per-asset locking, metrics and the HTTP server. It also
// owns signal handling and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/docgate/internal/dbx"
	"github.com/dmitrijs2005/docgate/internal/logging"
	"github.com/dmitrijs2005/docgate/internal/server/auth"
	"github.com/dmitrijs2005/docgate/internal/server/config"
	"github.com/dmitrijs2005/docgate/internal/server/gateway"
	"github.com/dmitrijs2005/docgate/internal/server/httpserver"
	"github.com/dmitrijs2005/docgate/internal/server/metrics"
	"github.com/dmitrijs2005/docgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docgate/internal/server/storage"
	miniostore "github.com/dmitrijs2005/docgate/internal/server/storage/minio"
	s3store "github.com/dmitrijs2005/docgate/internal/server/storage/s3"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	service *gateway.Service
	metrics *metrics.Collector
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := newStorage(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	locker, err := newLocker(c, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	collector := metrics.NewCollector()
	svc := gateway.NewService(rm.Assets(db), store, locker, c, logger, gateway.WithMetrics(collector))

	return &App{config: c, logger: logger, db: db, service: svc, metrics: collector}, nil
}

// newStorage builds the object-storage backend named by StorageDriver.
func newStorage(ctx context.Context, c *config.Config) (storage.Backend, error) {
	switch c.StorageDriver {
	case "s3", "":
		return s3store.New(ctx, s3store.Config{
			Endpoint:     c.S3BaseEndpoint,
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			UsePathStyle: c.S3UsePathStyle,
		})
	case "minio":
		return miniostore.New(miniostore.Config{
			Endpoint:     c.S3BaseEndpoint,
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			UsePathStyle: c.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}

// newLocker picks the per-asset lock. The postgres lock also serializes
// across replicas; the in-memory one only within this process.
func newLocker(c *config.Config, db *sql.DB) (gateway.Locker, error) {
	switch c.LockBackend {
	case "postgres", "":
		return dbx.NewAdvisoryLocker(db), nil
	case "memory":
		return gateway.NewKeyedMutex(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", c.LockBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpserver.NewRouter(httpserver.Deps{
		Service:    app.service,
		Gate:       auth.NewRoleGate(),
		Secret:     []byte(app.config.SecretKey),
		APIBaseURL: app.config.APIBaseURL,
		Logger:     app.logger,
		Metrics:    app.metrics,
	})

	s := httpserver.NewServer(app.config.EndpointAddrHTTP, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "failed to close database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
