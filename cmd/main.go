package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eaglebank/insights-service/internal/command"
	"github.com/eaglebank/insights-service/internal/config"
	"github.com/eaglebank/insights-service/internal/handler"
	"github.com/eaglebank/insights-service/internal/metrics"
	"github.com/eaglebank/insights-service/internal/query"
	"github.com/eaglebank/insights-service/internal/repository"
	"github.com/eaglebank/insights-service/shared/events"
	"github.com/eaglebank/insights-service/shared/logger"
	"github.com/eaglebank/insights-service/shared/middleware"
	redisClient "github.com/eaglebank/insights-service/shared/redis"
	"github.com/eaglebank/insights-service/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	seedLockKey     = "insights:seed:lock"
	cacheGroup      = "insights-cache"
	eventStreamSize = 1000
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "insights-service"})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open record store")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close record store")
		}
	}()

	m := metrics.New("insights")

	// Redis is optional: view cache, distributed seed lock and seed events.
	var (
		redis     *redisClient.Client
		publisher events.Publisher = events.NopPublisher{}
		locker    command.SeedLocker = command.NewLocalLocker()
	)
	if cfg.RedisEnabled() {
		redis, err = redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to Redis")
		}
		defer redis.Close()

		publisher = events.NewStreamPublisher(redis.Client, eventStreamSize)
		locker = command.ChainLocker{locker, redisClient.NewLock(redis.Client, seedLockKey, cfg.SeedLockTTL)}
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis enabled")
	}

	// CQRS: query side first so the command side can invalidate its views
	queryOpts := query.Options{List: cfg.List, LegacyPriceSearch: cfg.LegacyPriceSearch, CacheTTL: cfg.ViewCacheTTL}
	if redis != nil {
		queryOpts.Cache = redis.Client
	}
	querySvc := query.NewTransactionQueryService(store, queryOpts, m, logger.Component(log, "query"))

	source := repository.NewSeedSourceRepository(cfg.SeedSourceURL, cfg.SeedTimeout)
	commandSvc := command.NewTransactionCommandService(store, source, locker, publisher, querySvc, m, logger.Component(log, "seed"))

	if redis != nil {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    cacheGroup,
			Consumer: utils.GenerateID("insights"),
			Stream:   events.TransactionEventsStream,
			Types:    []string{events.TransactionsSeeded},
			Handler:  querySvc.HandleTransactionEvent,
			Logger:   logger.Component(log, "cache-warmer"),
		})
		go func() {
			if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("cache warmer stopped")
			}
		}()
	}

	if cfg.SeedOnStartup {
		if err := commandSvc.SeedOnStartup(ctx); err != nil {
			log.Error().Err(err).Msg("startup seed failed")
		}
	}

	transactionHandler := handler.NewTransactionHandler(commandSvc, querySvc)

	// Setup router
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestIDMiddleware(), middleware.LoggingMiddleware(logger.Component(log, "http")), m.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	var seedGuards []gin.HandlerFunc
	if cfg.JWTSecret != "" {
		seedGuards = append(seedGuards, middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	}
	transactionHandler.RegisterRoutes(router, seedGuards...)
	transactionHandler.RegisterRoutes(router.Group("/api"), seedGuards...)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.SeedTimeout + 10*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	// Graceful shutdown handling
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		cancel()
	}()

	log.Info().Str("port", cfg.Port).Str("backend", cfg.StoreBackend).Bool("redis", redis != nil).Msg("insights service starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Str("port", cfg.Port).Msg("server error")
	}

	<-done
	log.Info().Msg("server stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.TransactionStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		store, err := repository.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("using mongo record store")
		return store, nil
	case config.BackendMemory:
		log.Warn().Msg("using in-memory record store; data is lost on restart")
		return repository.NewMemoryStore(), nil
	default:
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("using postgres record store")
		return repository.NewPostgresStore(db), nil
	}
}
