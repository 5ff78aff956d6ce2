package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/bankledger/internal/adapter/http"
	"github.com/iho/bankledger/internal/adapter/http/handler"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/bankledger/internal/adapter/repository/redis"
	"github.com/iho/bankledger/internal/infrastructure/auth"
	"github.com/iho/bankledger/internal/infrastructure/config"
	"github.com/iho/bankledger/internal/infrastructure/eventpublisher"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
	"github.com/iho/bankledger/internal/infrastructure/postgres"
	"github.com/iho/bankledger/internal/infrastructure/redis"
	"github.com/iho/bankledger/internal/usecase"
)

const limiterIdleTTL = time.Hour

// storage bundles the repositories for one storage driver.
type storage struct {
	txManager    usecase.TransactionManager
	accounts     usecase.AccountRepository
	transactions usecase.TransactionRepository
	users        usecase.UserRepository
	outbox       usecase.OutboxRepository
	retrier      usecase.Retrier
	ping         handler.Pinger
	close        func()
}

// app is the wired server: HTTP handler plus background workers.
type app struct {
	Handler http.Handler

	logger      zerolog.Logger
	metrics     *metrics.Metrics
	publisher   *eventpublisher.EventPublisher
	rateLimiter *middleware.RateLimiter
	closers     []func()
	wg          sync.WaitGroup
}

func newApp(ctx context.Context, cfg *config.Config, l zerolog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	a := &app{logger: l}

	store, err := newStorage(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	idGen := postgresRepo.NewUUIDGenerator()
	eventIDGen := postgresRepo.NewULIDGenerator()

	userUC := usecase.NewUserUseCase(store.users, idGen)

	var (
		idempotencyStore usecase.IdempotencyStore
		redisPing        handler.Pinger
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { client.Close() })
		l.Info().Msg("connected to redis")

		userUC = userUC.WithCache(redisRepo.NewCache(client), cfg.UserCacheTTL)
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
		redisPing = redisPinger(client)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.NewWithRegisterer(reg)
		a.metrics = m
	}

	accountUC := usecase.NewAccountUseCase(store.txManager, userUC, store.accounts, store.outbox, idGen, postgresRepo.NewAccountNumberGenerator()).
		WithRetrier(store.retrier).
		WithEventIDGenerator(eventIDGen)
	transferUC := usecase.NewTransferUseCase(store.txManager, userUC, store.accounts, store.transactions, store.outbox, idGen).
		WithRetrier(store.retrier).
		WithEventIDGenerator(eventIDGen)
	historyUC := usecase.NewHistoryUseCase(userUC, store.accounts, store.transactions)
	if m != nil {
		accountUC = accountUC.WithMetrics(m)
		transferUC = transferUC.WithMetrics(m)
	}

	a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if m != nil {
		a.rateLimiter = a.rateLimiter.WithHitCounter(m.RateLimitHits)
	}

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(accountUC),
		TransferHandler: handler.NewTransferHandler(transferUC, historyUC),
		UserHandler:     handler.NewUserHandler(userUC),
		HealthHandler: handler.NewHealthHandler().
			WithCheck(cfg.StorageDriver, store.ping).
			WithCheck("redis", redisPing),
		TokenVerifier:    auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiration),
		Logger:           l,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.rateLimiter,
	}
	if cfg.RateLimitRPS == 0 {
		routerCfg.RateLimiter = nil
	}
	if m != nil {
		routerCfg.Metrics = m
		routerCfg.MetricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	a.Handler = httpAdapter.NewRouter(routerCfg)

	if cfg.EventsEnabled {
		publisher, closePublisher := newPublisher(cfg, l)
		a.closers = append(a.closers, closePublisher)

		pubCfg := eventpublisher.Config{
			OutboxRepo: store.outbox,
			Publisher:  publisher,
			Logger:     l,
			BatchSize:  cfg.EventsBatchSize,
			Interval:   cfg.EventsInterval,
			Retention:  cfg.EventsRetention,
		}
		if m != nil {
			pubCfg.Recorder = m
		}
		a.publisher = eventpublisher.NewEventPublisher(pubCfg)
	}

	return a, nil
}

func newStorage(ctx context.Context, cfg *config.Config, l zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		l.Warn().Msg("using in-memory storage; data is lost on restart")
		store := memory.NewStore()
		return &storage{
			txManager:    memory.NewTxManager(store),
			accounts:     memory.NewAccountRepository(store),
			transactions: memory.NewTransactionRepository(store),
			users:        memory.NewUserRepository(store),
			outbox:       memory.NewOutboxRepository(store),
			retrier:      postgresRepo.NewRetrier(l),
			close:        func() {},
		}, nil

	case config.StorageDriverPostgres:
		if cfg.MigrateOnStart {
			if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, l); err != nil {
				return nil, err
			}
		}

		pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		l.Info().Msg("connected to postgres")

		return &storage{
			txManager:    postgresRepo.NewTxManager(pool, cfg.DatabaseLockTimeout),
			accounts:     postgresRepo.NewAccountRepository(pool),
			transactions: postgresRepo.NewTransactionRepository(pool),
			users:        postgresRepo.NewUserRepository(pool),
			outbox:       postgresRepo.NewOutboxRepository(pool),
			retrier:      postgresRepo.NewRetrier(l),
			ping:         poolPinger(pool),
			close:        pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func newPublisher(cfg *config.Config, l zerolog.Logger) (eventpublisher.Publisher, func()) {
	if cfg.EventsPublisher == config.PublisherKafka {
		p := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		l.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing outbox events to kafka")
		return p, func() {
			if err := p.Close(); err != nil {
				l.Warn().Err(err).Msg("failed to close kafka writer")
			}
		}
	}
	return eventpublisher.NewLogPublisher(l), func() {}
}

func poolPinger(pool *pgxpool.Pool) handler.Pinger {
	return handler.PingFunc(pool.Ping)
}

func redisPinger(client *goredis.Client) handler.Pinger {
	return handler.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// StartWorkers launches the outbox publisher and limiter cleanup until ctx ends.
func (a *app) StartWorkers(ctx context.Context) {
	if a.publisher != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.publisher.Start(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error().Err(err).Msg("event publisher stopped")
			}
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(limiterIdleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.rateLimiter.CleanupLimiters(limiterIdleTTL)
			}
		}
	}()
}

// Wait blocks until workers started by StartWorkers return.
func (a *app) Wait() {
	a.wg.Wait()
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
