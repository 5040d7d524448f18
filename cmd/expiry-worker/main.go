package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openticket/checkout-service/internal/adapters/crdb"
	mongoadapter "github.com/openticket/checkout-service/internal/adapters/mongo"
	"github.com/openticket/checkout-service/internal/adapters/rabbit"
	"github.com/openticket/checkout-service/internal/config"
	"github.com/openticket/checkout-service/internal/domain"
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

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("checkout"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpiryWorker(repo, rabbitPub, audit, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, time.Minute)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// ReservationStore is the persistence surface the worker needs.
// *crdb.Repository satisfies it.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	GetExpiredReservations(ctx context.Context, now time.Time) ([]domain.Reservation, error)
	ExpireReservation(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) error
	ReturnQuota(ctx context.Context, tx pgx.Tx, ticketTypeID uuid.UUID, quantity int) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type AuditSink interface {
	LogReservationExpired(ctx context.Context, res domain.Reservation) error
}

// ExpiryWorker releases LOCKED reservations past their expiry and returns
// the reserved quantities to the quota ledger.
type ExpiryWorker struct {
	repo      ReservationStore
	rabbitPub EventPublisher
	audit     AuditSink
	logger    observability.Logger
}

func NewExpiryWorker(repo ReservationStore, rabbitPub EventPublisher, audit AuditSink, logger observability.Logger) *ExpiryWorker {
	return &ExpiryWorker{repo: repo, rabbitPub: rabbitPub, audit: audit, logger: logger}
}

func (w *ExpiryWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired, err := w.repo.GetExpiredReservations(ctx, now)
			if err != nil {
				w.logger.Error("failed to get expired reservations", err)
				continue
			}
			for _, res := range expired {
				if err := w.releaseWithRetry(ctx, res); err != nil {
					w.logger.WithField("reservation_id", res.ID).Error("failed to release reservation after retries", err)
				}
			}
		}
	}
}

// releaseWithRetry expires one reservation and credits its quantities back,
// retrying with exponential backoff on transient failures.
func (w *ExpiryWorker) releaseWithRetry(ctx context.Context, res domain.Reservation) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		err := w.repo.WithTx(ctx, func(tx pgx.Tx) error {
			if err := w.repo.ExpireReservation(ctx, tx, res.ID); err != nil {
				return err
			}
			for _, item := range res.Items {
				if err := w.repo.ReturnQuota(ctx, tx, item.TicketTypeID, item.Quantity); err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, domain.ErrNotFound) {
			// Another worker got there first.
			return nil
		}
		if err != nil {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}

		observability.ReservationsExpired.Inc()
		if auditErr := w.audit.LogReservationExpired(ctx, res); auditErr != nil {
			w.logger.Error("failed to write audit log", auditErr)
		}

		payload, _ := json.Marshal(map[string]interface{}{"reservation_id": res.ID, "user_id": res.UserID})
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		return w.rabbitPub.Publish(ctx, "reservation.expired", msg)
	}
	return fmt.Errorf("failed after %d retries", maxRetries)
}
