// Package server wires the storage gateway and runs its REST surface until
// the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/aikea/internal/bucket"
	"github.com/dmitrijs2005/aikea/internal/bucket/parser"
	"github.com/dmitrijs2005/aikea/internal/bucket/transport"
	"github.com/dmitrijs2005/aikea/internal/dbx"
	"github.com/dmitrijs2005/aikea/internal/logging"
	"github.com/dmitrijs2005/aikea/internal/server/config"
	"github.com/dmitrijs2005/aikea/internal/server/httpapi"
	"github.com/dmitrijs2005/aikea/internal/server/localstore"
	"github.com/dmitrijs2005/aikea/internal/server/metrics"
	"github.com/dmitrijs2005/aikea/internal/server/repositories/repomanager"
	"github.com/gin-gonic/gin"
)

const (
	userAgent   = "aikea-gateway/1.0"
	filesPrefix = "/files/"
	dbAttempts  = 10
	dbDelay     = time.Second
)

// openDB is replaced in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	closers []io.Closer
	server  *httpapi.Server
	gateway *bucket.Gateway
}

// NewApp builds every component described by c. In local mode it also
// waits for the database and applies migrations.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, logCloser := logging.New(logging.Options{File: c.LogFile, Debug: c.Debug})
	app := &App{config: c, logger: logger, closers: []io.Closer{logCloser}}

	if !c.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	observer, err := metrics.NewObserver("")
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	gateway, filesDir, closer, err := BuildGateway(ctx, c, logger, observer)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closer)
	app.gateway = gateway

	opts := []httpapi.Option{
		httpapi.WithAuthSecret(c.APISecretKey),
		httpapi.WithMetrics(observer.Handler()),
	}
	if filesDir != "" {
		opts = append(opts, httpapi.WithFiles(filesDir))
	}

	app.server = httpapi.NewServer(c.EndpointAddr, app.gateway, logger, opts...)
	return app, nil
}

// BuildGateway wires the gateway described by c. filesDir is set when local
// files must be served under /files. The closer releases the database, if
// one was opened. observer may be nil.
func BuildGateway(ctx context.Context, c *config.Config, logger logging.Logger, observer *metrics.Observer) (g *bucket.Gateway, filesDir string, closer io.Closer, err error) {
	closer = closerFunc(func() error { return nil })

	var store bucket.Store
	switch c.Mode {
	case config.ModeLocal:
		ls, dir, db, err := newLocalStore(ctx, c, logger)
		if db != nil {
			closer = db
		}
		if err != nil {
			_ = closer.Close()
			return nil, "", nil, err
		}
		store, filesDir = ls, dir
	default:
		store = newRemoteStore(c, logger, observer)
	}

	g = bucket.NewGateway(bucket.Config{
		Mode:    bucket.Mode(c.Mode),
		BaseURL: c.BucketBaseURL,
		Token:   c.BucketToken,
	}, store, logger, bucket.WithOperationObserver(observer))

	if !g.IsConfigured() {
		logger.Warn(ctx, "bucket gateway is not configured, data operations will fail",
			"base_url_set", c.BucketBaseURL != "", "token_set", c.BucketToken != "")
	} else {
		logger.Info(ctx, "bucket gateway configured",
			"mode", c.Mode, "base_url", c.BucketBaseURL, "token", logging.Redact(c.BucketToken))
	}
	return g, filesDir, closer, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newRemoteStore(c *config.Config, logger logging.Logger, observer transport.Observer) *bucket.RemoteStore {
	chain := transport.NewChain(
		transport.NewPooledClient(c.RequestTimeout),
		transport.NewRawClient(c.RequestTimeout, userAgent, logger),
		transport.NewProcessClient(c.CurlPath, c.RequestTimeout, logger),
		transport.NewProbeClient(c.ProbeTimeout),
		logger,
		transport.WithObserver(observer),
	)
	return bucket.NewRemoteStore(c.BucketBaseURL, c.BucketToken, chain, parser.New(logger), logger)
}

// newLocalStore returns the store and, for the disk backend, the directory
// to serve under /files. db is returned even on failure so the caller can
// close it.
func newLocalStore(ctx context.Context, c *config.Config, logger logging.Logger) (*localstore.Store, string, *sql.DB, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, "", nil, fmt.Errorf("db init error: %w", err)
	}

	if err := dbx.WaitReady(ctx, db, dbAttempts, dbDelay); err != nil {
		return nil, "", db, fmt.Errorf("db not ready: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, "", db, fmt.Errorf("migrations: %w", err)
	}

	blobs, filesDir, err := newBlobStore(ctx, c)
	if err != nil {
		return nil, "", db, err
	}
	logger.Info(ctx, "local storage ready", "blob_backend", blobs.Name())

	return localstore.New(db, repos, blobs, logger), filesDir, db, nil
}

func newBlobStore(ctx context.Context, c *config.Config) (localstore.BlobStore, string, error) {
	if c.BlobBackend == config.BlobBackendS3 {
		s3, err := localstore.NewS3BlobStore(ctx, localstore.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			UsePathStyle: true,
		})
		if err != nil {
			return nil, "", fmt.Errorf("s3 init error: %w", err)
		}
		return s3, "", nil
	}

	disk, err := localstore.NewDiskBlobStore(c.UploadDir, filesPrefix)
	if err != nil {
		return nil, "", fmt.Errorf("upload dir: %w", err)
	}
	return disk, disk.Root(), nil
}

// Gateway exposes the wired facade.
func (app *App) Gateway() *bucket.Gateway {
	return app.gateway
}

// Close releases the database and log file.
func (app *App) Close() error {
	var first error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	app.closers = nil
	return first
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
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is canceled or a termination signal arrives.
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

	if err := app.Close(); err != nil {
		app.logger.Error(context.WithoutCancel(ctx), "shutdown", "error", err)
	}
}
