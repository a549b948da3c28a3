package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/marketplace/storefront/internal/cache"
	"github.com/fjod/marketplace/storefront/internal/client"
	"github.com/fjod/marketplace/storefront/internal/config"
	h "github.com/fjod/marketplace/storefront/internal/http"
	"github.com/fjod/marketplace/storefront/internal/journal"
	"github.com/fjod/marketplace/storefront/internal/logging"
	"github.com/fjod/marketplace/storefront/internal/metrics"
	"github.com/fjod/marketplace/storefront/internal/publisher"
	"github.com/fjod/marketplace/storefront/internal/repository"
	"github.com/fjod/marketplace/storefront/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type eventSink interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := initTracerProvider(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.WithError(err).Fatal("failed to init tracing")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	checks := map[string]h.HealthCheck{}

	var (
		cartCache cache.CartCache   = cache.NopCache{}
		markers   cache.MarkerStore = cache.NewMemoryMarkerStore(cfg.PendingCheckoutTTL)
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("redis connection failed")
		}
		log.WithField("addr", cfg.RedisAddr).Info("redis ping succeeded")

		cartCache = cache.NewRedisCache(redisClient)
		markers = cache.NewRedisMarkerStore(redisClient, cfg.PendingCheckoutTTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		log.Warn("REDIS_ADDR not set, cart cache disabled and pending checkouts kept in memory")
	}

	var repo repository.CartStateRepository
	if cfg.MongoURI != "" {
		mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoOptions{
			URI:         cfg.MongoURI,
			Database:    cfg.MongoDBName,
			MaxPoolSize: uint64(cfg.MongoMaxPoolSize),
			MinPoolSize: uint64(cfg.MongoMinPoolSize),
			PingTimeout: cfg.RequestTimeout,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to connect to MongoDB")
		}
		defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()

		mongoRepo := repository.NewMongoRepository(mongoDB)
		if err := mongoRepo.CreateIndexes(ctx); err != nil {
			log.WithError(err).Fatal("failed to create cart indexes")
		}
		repo = mongoRepo
		checks["mongo"] = func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, readpref.Primary()) }
		log.WithField("database", cfg.MongoDBName).Info("cart state stored in MongoDB")
	} else {
		repo = repository.NewMemoryRepository()
		log.Warn("MONGO_URI not set, cart state kept in memory")
	}

	var attempts *h.AttemptHandler
	opts := []service.Option{
		service.WithMetrics(m),
		service.WithLogger(log),
		service.WithStepTimeout(cfg.RequestTimeout),
	}

	if cfg.Postgres.Host != "" {
		cred := &journal.Credentials{
			Host:              cfg.Postgres.Host,
			Port:              cfg.Postgres.Port,
			User:              cfg.Postgres.User,
			Password:          cfg.Postgres.Password,
			DBName:            cfg.Postgres.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		}
		j, err := journal.NewRepository(ctx, cred)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to journal database")
		}
		defer j.Close()
		if err := j.RunMigrations(cred); err != nil {
			log.WithError(err).Fatal("failed to run journal migrations")
		}
		opts = append(opts, service.WithJournal(j))
		checks["postgres"] = j.Ping
		attempts = h.NewAttemptHandler(j, cfg.RequestTimeout, log)
		log.Info("checkout journal enabled")
	}

	var events eventSink = publisher.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		events = publisher.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		log.WithField("topic", cfg.KafkaTopic).Info("checkout events published to kafka")
	}
	defer events.Close()
	opts = append(opts, service.WithEvents(events))

	clientOpts := func(url string) client.Options {
		return client.Options{BaseURL: url, Timeout: cfg.RequestTimeout, Logger: log}
	}
	orders := client.NewOrderClient(clientOpts(cfg.OrderAPIURL))
	payments := client.NewPaymentClient(clientOpts(cfg.PaymentAPIURL))
	catalogClient := client.NewCatalogClient(clientOpts(cfg.CatalogAPIURL))

	carts := service.NewCartService(repo, cartCache, m, log)
	catalog := service.NewCatalogService(catalogClient, carts)
	orchestrator := service.NewOrchestrator(carts, orders, payments, markers, opts...)
	resumption := service.NewResumptionService(markers, cfg.ConfirmDelay, opts...)

	router := h.NewRouter(h.RouterConfig{
		Cart:     h.NewCartHandler(carts, catalog, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(orchestrator, resumption, log),
		Products: h.NewProductHandler(catalog, cfg.RequestTimeout, log),
		Attempts: attempts,
		Session: h.SessionConfig{
			CookieName: cfg.SessionCookieName,
			Secure:     cfg.SessionCookieSecure,
			MaxAge:     cfg.SessionCookieMaxAge,
		},
		Metrics:        m,
		Health:         checks,
		RequestTimeout: cfg.RequestTimeout + cfg.ConfirmDelay,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3*cfg.RequestTimeout + cfg.ConfirmDelay,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer, healthSrv, err := serveGRPC(cfg.GRPCPort, log)
	if err != nil {
		log.WithError(err).Fatal("failed to start gRPC health server")
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down storefront...")
	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("failed to flush traces")
	}
	log.Info("storefront stopped")
}

// serveGRPC exposes the standard health service for orchestrators that poll
// over gRPC.
func serveGRPC(port string, log logrus.FieldLogger) (*grpc.Server, *health.Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthSrv := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		log.WithField("port", port).Info("gRPC health listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC server stopped")
		}
	}()
	return grpcServer, healthSrv, nil
}
