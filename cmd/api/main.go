package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongoadapter "github.com/blisslabs/consulting-reservations/internal/adapters/mongo"
	"github.com/blisslabs/consulting-reservations/internal/adapters/pg"
	"github.com/blisslabs/consulting-reservations/internal/adapters/rabbit"
	redisadapter "github.com/blisslabs/consulting-reservations/internal/adapters/redis"
	"github.com/blisslabs/consulting-reservations/internal/booking"
	"github.com/blisslabs/consulting-reservations/internal/config"
	"github.com/blisslabs/consulting-reservations/internal/gateway"
	httphandler "github.com/blisslabs/consulting-reservations/internal/http"
	"github.com/blisslabs/consulting-reservations/internal/idempotency"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/blisslabs/consulting-reservations/internal/rateLimit"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := pg.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("crs")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	ledgerStore := redisadapter.NewLedgerStore(redisClient, cfg.LedgerTTL)
	redisIdemp := redisadapter.NewIdempotency(redisClient, time.Hour)
	idemp := idempotency.NewIdempotency(redisIdemp)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	backend := pg.NewBackend(repo, redisCache, cfg.HoldTTL)
	gw := gateway.NewClient(cfg.GatewayBaseURL)
	identity := gateway.NewIdentityClient(cfg.IdentityBaseURL)

	flow := booking.NewFlow(backend, gw, ledgerStore, catalog, redisCache,
		booking.BankDetails{Account: cfg.BankAccount, Holder: cfg.BankHolder}, logger)

	handlers := httphandler.NewHandlers(cfg, flow, backend, redisCache, idemp, audit, rabbitPub, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp, identity)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
