package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/api"
	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/events"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/seed"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/internal/storage"
	"github.com/d60-Lab/microblog/pkg/database"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/tracing"
)

// @title Microblog API
// @version 1.0
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name api-key
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			return err
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	store := repository.NewStore(db)
	if err := seed.Apply(ctx, store, cfg.Seed); err != nil {
		return err
	}

	profiles, closeCache := newProfileCache(ctx, cfg.Redis)
	defer closeCache()

	blobs, err := storage.New(ctx, cfg.Media)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	events.MustRegister(reg)

	stopRelay := startRelay(cfg.Events, store)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := stopRelay(sctx); err != nil {
			logger.Warn("relay stop timed out", zap.Error(err))
		}
	}()

	h := handler.NewHandler(handler.Services{
		Auth:      service.NewAuthService(store),
		Relations: service.NewRelationshipService(store, profiles),
		Tweets:    service.NewTweetService(store),
		Media:     service.NewMediaService(store, blobs),
		Feed:      service.NewFeedService(store, profiles),
	}, handler.Options{
		APIKeyHeader:   cfg.Server.APIKeyHeader,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
		Ping:           func(ctx context.Context) error { return database.Ping(ctx, db) },
	})

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(h, api.RouterOptions{
		Registry:    reg,
		ServiceName: cfg.Tracing.ServiceName,
		Sentry:      cfg.Sentry.DSN != "",
		Swagger:     cfg.Server.Mode != gin.ReleaseMode,
		MediaDir:    localMediaDir(cfg.Media),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newProfileCache(ctx context.Context, cfg config.RedisConfig) (cache.ProfileCache, func()) {
	if !cfg.Enabled() {
		return cache.Noop{}, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// 缓存读写失败时会回源，这里只告警
		logger.Warn("redis unreachable, profile cache degraded", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	return cache.NewRedisProfileCache(rdb, cfg.ProfileTTL), func() { _ = rdb.Close() }
}

func startRelay(cfg config.EventsConfig, store *repository.Store) func(context.Context) error {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }
	}
	var sink events.Sink = events.LogSink{}
	if len(cfg.Brokers) > 0 {
		sink = events.NewKafkaSink(cfg.Brokers, cfg.Topic)
	}
	relay := events.NewRelay(store.Outbox(), sink, cfg)
	stop := relay.Start()
	logger.Info("outbox relay started", zap.Strings("brokers", cfg.Brokers), zap.Int("workers", cfg.Workers))
	return func(ctx context.Context) error {
		err := stop(ctx)
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	}
}

// localMediaDir s3 后端的图片由对象存储直接提供
func localMediaDir(cfg config.MediaConfig) string {
	if cfg.Backend == "local" {
		return cfg.Dir
	}
	return ""
}
