package accessservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/ventures-access/internal/cache"
	"github.com/magabrotheeeer/ventures-access/internal/config"
	healthhandler "github.com/magabrotheeeer/ventures-access/internal/http/handlers/health"
	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ventures-access/internal/lib/jwt"
	"github.com/magabrotheeeer/ventures-access/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/migrations"
	"github.com/magabrotheeeer/ventures-access/internal/priceoracle"
	accesssvc "github.com/magabrotheeeer/ventures-access/internal/services/access"
	authservice "github.com/magabrotheeeer/ventures-access/internal/services/auth"
	"github.com/magabrotheeeer/ventures-access/internal/services/nonce"
	"github.com/magabrotheeeer/ventures-access/internal/services/payment"
	subservice "github.com/magabrotheeeer/ventures-access/internal/services/subscription"
	"github.com/magabrotheeeer/ventures-access/internal/services/tier"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
)

const (
	shutdownTimeout = 15 * time.Second
	dbReadyRetries  = 10
	dbReadyDelay    = 3 * time.Second
	limiterIdle     = 10 * time.Minute
)

// App представляет сервис разграничения доступа.
type App struct {
	server        *http.Server
	grpcServer    *grpc.Server
	grpcListener  net.Listener
	healthServer  *health.Server
	logger        *slog.Logger
	db            *repository.Storage
	cache         *cache.Cache
	nonces        nonce.Store
	nonceLimiter  *middlewarectx.RateLimiter
	sweepInterval time.Duration
	conn          *amqp.Connection
	ch            *amqp.Channel
}

// connectDB подключается к PostgreSQL, повторяя попытки, пока база не станет доступна.
func connectDB(ctx context.Context, dsn string, retries int, delay time.Duration) (*repository.Storage, error) {
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		var db *repository.Storage
		if db, err = repository.New(ctx, dsn); err == nil {
			return db, nil
		}
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("database not ready after %d attempts: %w", retries, err)
}

// New создает приложение: подключает хранилища, применяет миграции и собирает сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("jwt secret key is not set")
	}

	a := &App{
		logger:        logger,
		sweepInterval: cfg.SweepInterval,
	}

	db, err := connectDB(ctx, cfg.StorageConnectionString, dbReadyRetries, dbReadyDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	a.db = db

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.closeResources()
		return nil, err
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		a.closeResources()
		return nil, err
	}

	healthChecks := map[string]healthhandler.Pinger{"postgres": db}

	if cfg.AddressRedis != "" {
		a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("cache not initialized: %w", err)
		}
		healthChecks["redis"] = a.cache
	}

	switch cfg.NonceBackend {
	case "redis":
		if a.cache == nil {
			a.closeResources()
			return nil, errors.New("nonce backend redis requires redis_connection.addressredis")
		}
		a.nonces = nonce.NewRedisStore(a.cache.Db, cfg.NonceTTL, logger)
	default:
		a.nonces = nonce.NewMemoryStore(logger, nonce.WithTTL(cfg.NonceTTL))
	}

	var priceCache priceoracle.Cache
	if a.cache != nil {
		priceCache = a.cache
	}
	oracle := priceoracle.NewClient(cfg.PriceOracle.URL, cfg.PriceOracle.Timeout, priceCache, cfg.CacheTTL, logger)

	if !cfg.PaymentVerificationEnabled() {
		logger.Warn("eth receiving address not configured, on-chain payment verification disabled")
	}
	aggregator := payment.NewAggregator(
		payment.NewConverter(cfg.EthAmountMode, oracle, logger),
		payment.NewStubProbe(cfg.ReceivingAddress, logger),
		logger,
		payment.WithLookbackDays(cfg.LookbackDays),
	)
	resolver := tier.NewResolver(aggregator, logger)
	projector := accesssvc.NewProjector(resolver, logger)

	var publisher subservice.EventPublisher = rabbitmq.NopPublisher{Log: logger}
	if cfg.RabbitMQURL != "" {
		a.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
		}
		a.ch, err = rabbitmq.SetupChannel(a.conn, rabbitmq.AccessEventQueues())
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
		}
		publisher = rabbitmq.NewEventPublisher(a.ch, logger)
	} else {
		logger.Warn("rabbitmq url not configured, access events will be dropped")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(a.nonces, db, jwtMaker, projector, cfg.NonceTTL, logger)
	subscriptionService := subservice.NewSubscriptionService(db, resolver, projector, publisher, logger)

	a.nonceLimiter = middlewarectx.NewRateLimiter(cfg.NonceRateLimit, cfg.NonceRateBurst)
	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Auth:          authService,
		Subscriptions: subscriptionService,
		Users:         db,
		Access:        projector,
		Tokens:        jwtMaker,
		Oracle:        oracle,
		NonceLimiter:  a.nonceLimiter,
		HealthChecks:  healthChecks,
	})

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	a.grpcListener, err = net.Listen("tcp", cfg.AddressGRPC)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("failed to listen grpc: %w", err)
	}
	a.grpcServer = grpc.NewServer()
	a.healthServer = health.NewServer()
	healthpb.RegisterHealthServer(a.grpcServer, a.healthServer)

	return a, nil
}

// Run запускает HTTP- и gRPC-серверы и очистку nonce; блокируется до отмены ctx или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go nonce.RunSweeper(sweepCtx, a.nonces, a.sweepInterval, a.logger)
	go a.nonceLimiter.RunEvictor(sweepCtx, a.sweepInterval, limiterIdle, a.logger)

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC health service listening on", slog.String("address", a.grpcListener.Addr().String()))
		errCh <- a.grpcServer.Serve(a.grpcListener)
	}()
	a.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	a.logger.Info("shutting down servers gracefully")
	a.healthServer.Shutdown()
	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	a.grpcServer.GracefulStop()
	a.closeResources()
	return runErr
}

func (a *App) closeResources() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close RabbitMQ channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close RabbitMQ connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
