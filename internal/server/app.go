// Package server wires the CloudPool server: database and migrations,
// provider transports, token refresher, allocation engine, services, the
// gRPC endpoint and the metrics listener. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/cryptox"
	"github.com/dmitrijs2005/cloudpool/internal/dbx"
	"github.com/dmitrijs2005/cloudpool/internal/logging"
	"github.com/dmitrijs2005/cloudpool/internal/metrics"
	"github.com/dmitrijs2005/cloudpool/internal/server/config"
	"github.com/dmitrijs2005/cloudpool/internal/server/engine"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers/dropbox"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers/gdrive"
	"github.com/dmitrijs2005/cloudpool/internal/server/providers/objectstore"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cloudpool/internal/server/services"
	"github.com/dmitrijs2005/cloudpool/internal/server/tokens"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/cloudpool/internal/server/grpc"
)

const refreshTokenPurgeInterval = time.Hour

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	registry    *prometheus.Registry
	metrics     *metrics.Metrics

	userService    *services.UserService
	fileService    *services.FileService
	accountService *services.AccountService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	db, err := dbx.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	codec, err := cryptox.NewCodec(c.EncryptionEnabled, c.EncryptionSecret)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("codec init error: %w", err)
	}

	client := providers.NewHTTPClient(c.HTTPTimeout, c.HTTPRetryMax, logger)
	transports := newTransports(c, client)
	eng := engine.New(transports, newRefresher(c, client, logger), codec, logger, m, engine.Options{
		MinChunkSize:     c.MinChunkSize,
		ProbeConcurrency: c.ProbeConcurrency,
		ChunkConcurrency: c.ChunkConcurrency,
	})

	logger.Info(ctx, "engine ready",
		"providers", transports.Providers(),
		"encryption", codec.Enabled(),
		"min_chunk_size", c.MinChunkSize)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		repomanager:    rm,
		registry:       registry,
		metrics:        m,
		userService:    services.NewUserService(db, rm, c),
		fileService:    services.NewFileService(db, rm, eng, logger),
		accountService: services.NewAccountService(db, rm, eng, transports.Providers(), logger),
	}, nil
}

func newTransports(c *config.Config, client *retryablehttp.Client) *providers.Registry {
	r := providers.NewRegistry()
	r.Register(models.ProviderGoogle, gdrive.New(client, c.GoogleAPIBase, c.GoogleUploadBase))
	r.Register(models.ProviderDropbox, dropbox.New(client, c.DropboxAPIBase, c.DropboxContentBase))
	r.Register(models.ProviderS3, objectstore.New(objectstore.Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		QuotaBytes:   c.S3QuotaBytes,
	}))
	return r
}

func newRefresher(c *config.Config, client *retryablehttp.Client, logger logging.Logger) *tokens.Refresher {
	r := tokens.NewRefresher(client, logger)
	r.Register(models.ProviderGoogle, tokens.GoogleEndpoint(c.GoogleTokenURL, c.GoogleClientID, c.GoogleClientSecret))
	r.Register(models.ProviderDropbox, tokens.DropboxEndpoint(c.DropboxTokenURL, c.DropboxClientID, c.DropboxClientSecret))
	r.RegisterStatic(models.ProviderS3)
	return r
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(gs.Options{
		Address:        app.config.EndpointAddrGRPC,
		SecretKey:      app.config.SecretKey,
		MaxMessageSize: app.config.MaxMessageSize,
		Metrics:        app.metrics,
	}, app.logger, app.userService, app.fileService, app.accountService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context) {
	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)
	if err := metrics.Serve(ctx, app.config.MetricsAddr, app.registry); err != nil {
		app.logger.Error(ctx, "metrics server failed", "error", err)
	}
}

// purgeExpiredTokens removes refresh tokens past their expiry.
func (app *App) purgeExpiredTokens(ctx context.Context) {
	n, err := app.repomanager.RefreshTokens(app.db).DeleteExpired(ctx, time.Now())
	if err != nil {
		app.logger.Warn(ctx, "refresh token purge failed", "error", err)
		return
	}
	if n > 0 {
		app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
	}
}

func (app *App) runTokenJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.purgeExpiredTokens(ctx)
		}
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
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runTokenJanitor(ctx, refreshTokenPurgeInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "closing database", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
