package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naeap/journal/internal/auth"
	"github.com/naeap/journal/internal/config"
	"github.com/naeap/journal/internal/console"
	"github.com/naeap/journal/internal/content"
	"github.com/naeap/journal/internal/httpserver"
	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/views"
	"github.com/naeap/journal/internal/logger"
	"github.com/naeap/journal/internal/markdown"
	"github.com/naeap/journal/internal/metrics"
	"github.com/naeap/journal/internal/redis"
	"github.com/naeap/journal/internal/scheduler"
	"github.com/naeap/journal/internal/seed"
	"github.com/naeap/journal/internal/store"
	redisstore "github.com/naeap/journal/internal/store/redis"
	"github.com/naeap/journal/internal/uploads"
	"github.com/naeap/journal/internal/utils"
	"github.com/naeap/journal/internal/version"
)

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	metrics   *metrics.Metrics
	connector *redis.Connector // nil with the memory store
	content   *content.Service
}

// New opens the content store. Redis is dialed here, so a store that cannot
// be reached fails startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerClient := logger.NewWithOptions(logger.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.PrettyLog,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	a := &App{
		cfg:     cfg,
		logger:  loggerClient,
		metrics: metrics.New(version.Name),
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	a.content, err = content.New(st, loggerClient, a.metrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("content service: %w", err)
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	if a.cfg.Store == config.StoreMemory {
		a.logger.Warn("using the in-memory store, content is lost on restart")
		return store.NewMemoryStore(), nil
	}

	a.logger.Infof("Connecting to Redis at %s", a.cfg.RedisAddr)
	a.connector = redis.NewConnector(redis.ConnectOptions{
		Addr:           a.cfg.RedisAddr,
		User:           a.cfg.RedisUser,
		Password:       a.cfg.RedisPassword,
		RedisDB:        a.cfg.RedisDB,
		DialTimeout:    a.cfg.RedisDT,
		ReadTimeout:    a.cfg.RedisRT,
		WriteTimeout:   a.cfg.RedisWT,
		PoolSize:       a.cfg.RedisPoolSize,
		ConnectTimeout: a.cfg.RedisConnectTimeout,
		RetryInterval:  a.cfg.RedisRetryInterval,
		MaxWait:        a.cfg.RedisMaxWait,
		PingTimeout:    a.cfg.RedisPingTimeout,
		WarnThreshold:  a.cfg.RedisWarnThreshold,
	}, a.logger)

	client, err := a.connector.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.logger.Info("Redis initialized successfully")
	return redisstore.NewStore(client, a.cfg.KeyPrefix), nil
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	defer a.Close()

	a.logger.Infof("🚀 Starting %s on %s", version.String(), a.cfg.ListenPort)
	a.logger.Debugf("config: %+v", a.cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := a.deps(ctx)
	if err != nil {
		return err
	}

	sweeper := scheduler.NewSessionSweeper(d.Consoles, a.logger, a.cfg.SweepInterval, a.cfg.SessionIdleTimeout)
	sweeper.Start(ctx)
	a.logger.Info("session sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval),
		logger.Duration("idle_timeout", a.cfg.SessionIdleTimeout))

	server := httpserver.New(a.cfg, a.logger, d)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		sweeper.Stop()
		return err
	}

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("✅ naeap stopped cleanly")
	return nil
}

func (a *App) deps(ctx context.Context) (deps.Deps, error) {
	authenticator, err := auth.New(a.cfg.AdminUsername, a.cfg.AdminPasswordHash, a.cfg.SessionSecret, a.cfg.SessionTTL)
	if err != nil {
		return deps.Deps{}, err
	}

	v, err := views.New(markdown.New())
	if err != nil {
		return deps.Deps{}, fmt.Errorf("views: %w", err)
	}

	var uploader uploads.Uploader = uploads.MetadataOnly{}
	if a.cfg.UploadsEnabled() {
		s3, err := uploads.NewS3(ctx, uploads.S3Options{
			Endpoint:  a.cfg.S3Endpoint,
			Region:    a.cfg.S3Region,
			Bucket:    a.cfg.S3Bucket,
			AccessKey: a.cfg.S3AccessKey,
			SecretKey: a.cfg.S3SecretKey,
		})
		if err != nil {
			return deps.Deps{}, err
		}
		uploader = s3
		a.logger.Info("manuscripts are uploaded to object storage", logger.String("bucket", a.cfg.S3Bucket))
	} else {
		a.logger.Warn("no upload bucket configured, only attachment metadata is kept")
	}

	consoleLog := a.logger.With(logger.String("component", "console"))
	registry := console.NewRegistry(func() *console.Console {
		return console.New(a.content, consoleLog, console.Options{
			PageSize:  a.cfg.AdminPageSize,
			NoticeTTL: a.cfg.NoticeTTL,
		})
	}, a.metrics)

	return deps.Deps{
		Logger:            a.logger,
		StartTime:         time.Now(),
		Version:           version.Version,
		TimeNow:           time.Now,
		AllowedHosts:      a.cfg.AllowedHosts,
		AllowedCIDRS:      a.cfg.AllowedCIDRS,
		TrustProxy:        a.cfg.TrustProxy,
		Content:           a.content,
		Consoles:          registry,
		Auth:              authenticator,
		Uploader:          uploader,
		Metrics:           a.metrics,
		Views:             v,
		ArchivePageSize:   a.cfg.ArchivePageSize,
		MaxUploadBytes:    a.cfg.MaxUploadBytes,
		SecureCookies:     a.cfg.SecureCookies,
		FormBurst:         a.cfg.FormBurst,
		FormRefillPerMin:  a.cfg.FormRefillPerMin,
		FormLimiterMaxIPs: a.cfg.FormLimiterMaxIPs,
	}, nil
}

// Seed loads a YAML seed file into the store.
func (a *App) Seed(ctx context.Context, path string) (seed.Result, error) {
	f, err := seed.Load(path)
	if err != nil {
		return seed.Result{}, err
	}
	return seed.Apply(ctx, a.content, f, a.logger)
}

// Close releases the store connection and flushes the logger.
func (a *App) Close() {
	if a.connector != nil {
		utils.CloseLogged(a.connector, a.logger, "redis")
		a.connector = nil
	}
	_ = a.logger.Sync()
}
