// Package app assembles the biolink server from its configuration and runs
// it until SIGINT or SIGTERM, then drains requests and releases resources.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/biolink/internal/auth"
	"github.com/patric-chuzhbe/biolink/internal/config"
	"github.com/patric-chuzhbe/biolink/internal/db/jsondb"
	"github.com/patric-chuzhbe/biolink/internal/db/memorystorage"
	"github.com/patric-chuzhbe/biolink/internal/db/miniostorage"
	"github.com/patric-chuzhbe/biolink/internal/db/mongodb"
	"github.com/patric-chuzhbe/biolink/internal/db/postgresdb"
	"github.com/patric-chuzhbe/biolink/internal/db/storage"
	"github.com/patric-chuzhbe/biolink/internal/ipchecker"
	"github.com/patric-chuzhbe/biolink/internal/logger"
	"github.com/patric-chuzhbe/biolink/internal/metrics"
	"github.com/patric-chuzhbe/biolink/internal/models"
	"github.com/patric-chuzhbe/biolink/internal/ratelimit"
	"github.com/patric-chuzhbe/biolink/internal/router"
	"github.com/patric-chuzhbe/biolink/internal/service"
	"github.com/patric-chuzhbe/biolink/internal/session"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
	limiterIdle     = 10 * time.Minute
)

type sessionStore interface {
	Create(ctx context.Context, ttl time.Duration) (string, error)
	Valid(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// App holds the configuration, the HTTP handler, the document storage and
// the session store of a running biolink server.
type App struct {
	cfg            *config.Config
	db             storage.Storage
	sessions       sessionStore
	background     context.Context
	stopBackground context.CancelFunc
	httpHandler    http.Handler
	metricsStore   *prometheus.Registry
}

// New loads the configuration, initializes the logger and builds the App.
func New() (*App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return NewWithConfig(context.Background(), cfg)
}

// NewWithConfig builds the App from an already loaded configuration. The
// stored document is read once so that a missing one is created before the
// first request.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg: cfg,
	}
	app.background, app.stopBackground = context.WithCancel(context.Background())

	var err error
	app.db, err = getStorageByType(ctx, cfg)
	if err != nil {
		app.stopBackground()
		return nil, err
	}

	if _, err := app.db.GetDocument(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("error preparing the initial document: %w", err), app.closeStores())
	}

	app.sessions, err = app.newSessionStore(ctx)
	if err != nil {
		return nil, errors.Join(err, app.closeStores())
	}

	signingKey, err := cfg.SigningKey()
	if err != nil {
		return nil, errors.Join(err, app.closeStores())
	}

	ipChecker, err := ipchecker.New(cfg.TrustedSubnet, cfg.TrustedProxies...)
	if err != nil {
		return nil, errors.Join(err, app.closeStores())
	}

	app.metricsStore = prometheus.NewRegistry()
	app.metricsStore.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	theMetrics := metrics.New(app.metricsStore)

	loginLimiter := ratelimit.New(
		cfg.LoginRateLimit,
		cfg.LoginRateBurst,
		ipChecker,
		ratelimit.WithOnReject(theMetrics.RateLimitRejects.Inc),
	)
	loginLimiter.Run(app.background, sweepInterval, max(limiterIdle, loginLimiter.RefillTime()))

	app.httpHandler = router.New(
		service.New(app.db),
		auth.New(
			app.sessions,
			cfg.AdminPassword,
			cfg.AuthCookieName,
			signingKey,
			cfg.SessionTTL,
		),
		router.WithMetrics(theMetrics, app.metricsStore),
		router.WithLoginLimiter(loginLimiter.Middleware),
		router.WithTrustedOnly(ipChecker.TrustedOnly),
	)

	return app, nil
}

func (a *App) newSessionStore(ctx context.Context) (sessionStore, error) {
	if a.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		store := session.NewRedisStore(client, "")

		pingCtx, cancel := context.WithTimeout(ctx, a.cfg.DBConnectionTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("error connecting to redis: %w", err)
		}

		return store, nil
	}

	store := session.NewMemoryStore()
	sweeper := session.NewSweeper(store, sweepInterval)
	sweeper.Run(a.background)
	sweeper.ListenErrors(func(err error) {
		logger.Log.Debugln("Error passed from the `sweeper.ListenErrors()`:", zap.Error(err))
	})

	return store, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server and blocks until a shutdown signal arrives or
// the server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Draining requests and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		closeErr := a.closeStores()
		if shutdownErr != nil {
			return fmt.Errorf("server shutdown error: %w", shutdownErr)
		}

		return closeErr

	case err := <-serverErrCh:
		closeErr := a.closeStores()
		if errors.Is(err, http.ErrServerClosed) {
			return closeErr
		}
		return errors.Join(fmt.Errorf("server error: %w", err), closeErr)
	}
}

func (a *App) closeStores() error {
	a.stopBackground()

	var errs []error
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	return errors.Join(errs...)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	switch {
	case cfg.DatabaseDSN != "":
		return models.StorageTypePostgresql

	case cfg.MongoURI != "":
		return models.StorageTypeMongo

	case cfg.MinIOEndpoint != "":
		return models.StorageTypeMinIO

	case cfg.DBFileName != "":
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			ctx,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeMongo:
		return mongodb.New(
			ctx,
			cfg.MongoURI,
			cfg.MongoDatabase,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeMinIO:
		return miniostorage.New(
			ctx,
			miniostorage.Config{
				Endpoint:  cfg.MinIOEndpoint,
				AccessKey: cfg.MinIOAccessKey,
				SecretKey: cfg.MinIOSecretKey,
				UseSSL:    cfg.MinIOUseSSL,
				Bucket:    cfg.MinIOBucket,
				Object:    cfg.MinIOObject,
			},
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
