package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/toolhub/backend/internal/cache"
	"github.com/toolhub/backend/internal/config"
	"github.com/toolhub/backend/internal/event"
	handler "github.com/toolhub/backend/internal/handler/http"
	"github.com/toolhub/backend/internal/repository/postgres"
	"github.com/toolhub/backend/internal/service"
	"github.com/toolhub/backend/pkg/database"
	"github.com/toolhub/backend/pkg/health"
	pkgkafka "github.com/toolhub/backend/pkg/kafka"
	"github.com/toolhub/backend/pkg/middleware"
)

// App wires together all dependencies and runs the toolhub API service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	consumers  []*pkgkafka.Consumer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Redis client backing the aggregate cache.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	toolRepo := postgres.NewToolRepository(pool)
	actionRepo := postgres.NewActionRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)

	store := cache.NewRedisStore(redisClient, "aggregates", logger)
	eventProducer := event.NewProducer(kafkaProducer, logger)

	var synonyms map[string][]string
	if cfg.SynonymsFile != "" {
		synonyms, err = service.LoadSynonyms(cfg.SynonymsFile)
		if err != nil {
			return nil, fmt.Errorf("load synonyms: %w", err)
		}
		logger.Info("loaded synonym dictionary",
			slog.String("path", cfg.SynonymsFile),
			slog.Int("terms", len(synonyms)),
		)
	}

	aggregateService := service.NewAggregateService(toolRepo, actionRepo, reviewRepo, store, logger)
	toolService := service.NewToolService(toolRepo, actionRepo, categoryRepo, store, eventProducer, logger)
	ledgerService := service.NewLedgerService(actionRepo, toolRepo, reviewRepo, store, eventProducer, aggregateService, logger)
	reviewService := service.NewReviewService(reviewRepo, toolRepo, actionRepo, store, eventProducer, cfg.ReviewMaxDepth, logger)
	recommendService := service.NewRecommendService(toolRepo, actionRepo, store, synonyms, logger)

	// The recompute consumers converge aggregates after ledger writes.
	recomputeConsumer := event.NewConsumer(aggregateService, logger)
	consumers := event.NewConsumers(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, recomputeConsumer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	corsConfig := middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	}

	router := handler.NewRouter(
		toolService,
		ledgerService,
		reviewService,
		recommendService,
		healthHandler,
		corsConfig,
		logger,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   kafkaProducer,
		consumers:  consumers,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and Kafka consumers, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	for _, consumer := range a.consumers {
		c := consumer
		go func() {
			if err := c.Start(ctx); err != nil {
				a.logger.Error("kafka consumer error", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	for _, consumer := range a.consumers {
		if err := consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
