package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/openticket/checkout-service/internal/domain"
	"github.com/openticket/checkout-service/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) LogOrder(ctx context.Context, order domain.Order) error {
	data := map[string]interface{}{
		"order_id":     order.ID,
		"status":       order.Status,
		"total":        order.TotalAmount,
		"invoice_type": order.Invoice.Type,
		"items":        len(order.Items),
	}
	return a.LogEvent(ctx, "order.created", order.UserID, data)
}

func (a *AuditLogger) LogReservationExpired(ctx context.Context, res domain.Reservation) error {
	data := map[string]interface{}{
		"reservation_id": res.ID,
		"quantity":       res.Quantity,
		"expired_at":     res.ExpiresAt.Format(time.RFC3339),
	}
	return a.LogEvent(ctx, "reservation.expired", res.UserID, data)
}
