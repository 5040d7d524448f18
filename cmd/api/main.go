package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openticket/checkout-service/internal/adapters/crdb"
	mongoadapter "github.com/openticket/checkout-service/internal/adapters/mongo"
	redisadapter "github.com/openticket/checkout-service/internal/adapters/redis"
	"github.com/openticket/checkout-service/internal/checkout"
	"github.com/openticket/checkout-service/internal/config"
	"github.com/openticket/checkout-service/internal/ecpay"
	httphandler "github.com/openticket/checkout-service/internal/http"
	"github.com/openticket/checkout-service/internal/idempotency"
	"github.com/openticket/checkout-service/internal/observability"
	"github.com/openticket/checkout-service/internal/payment"
	"github.com/openticket/checkout-service/internal/rateLimit"
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

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("checkout"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	gateway := ecpay.NewClient(ecpay.Config{
		MerchantID:    cfg.ECPayMerchantID,
		HashKey:       cfg.ECPayHashKey,
		HashIV:        cfg.ECPayHashIV,
		APIURL:        cfg.ECPayAPIURL,
		ClientBackURL: cfg.ECPayClientBackURL,
		Domain:        cfg.AppDomain,
	})
	dispatcher := payment.NewDispatcher(gateway)

	service := checkout.NewService(repo, redisCache, dispatcher, audit, logger, cfg.ReservationTTL)

	handlers := httphandler.NewHandlers(cfg, service, repo, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    ":8080",
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
