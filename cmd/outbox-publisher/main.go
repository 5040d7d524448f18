package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/openticket/checkout-service/internal/adapters/crdb"
	"github.com/openticket/checkout-service/internal/adapters/rabbit"
	"github.com/openticket/checkout-service/internal/config"
	"github.com/openticket/checkout-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	publisher := NewOutboxPublisher(repo, rabbitPub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go publisher.Run(ctx, time.Second, 100)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown outbox publisher")
}

// OutboxPublisher relays NEW outbox records to the topic exchange so that
// events leave the service only after their transaction committed.
type OutboxPublisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewOutboxPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *OutboxPublisher {
	return &OutboxPublisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *OutboxPublisher) Run(ctx context.Context, interval time.Duration, batchSize int) {
	p.logger.Info("Outbox publisher started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishBatch(ctx, batchSize); err != nil {
				p.logger.Error("failed to publish outbox batch", err)
			}
		}
	}
}

func (p *OutboxPublisher) publishBatch(ctx context.Context, batchSize int) error {
	records, err := p.repo.GetUnpublishedOutbox(ctx, batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		observability.OutboxLag.Set(0)
		return nil
	}
	observability.OutboxLag.Set(time.Since(records[0].CreatedAt).Seconds())

	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			return err
		}
		if err := p.repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			return err
		}
	}
	return nil
}
