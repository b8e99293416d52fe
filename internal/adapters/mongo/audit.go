package mongo

import (
	"context"
	"time"

	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/blisslabs/consulting-reservations/internal/observability"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
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
		a.logger.WithError(err).Error("failed to insert audit log")
		return err
	}
	return nil
}

func (a *AuditLogger) LogHold(ctx context.Context, intent domain.ReservationIntent) error {
	data := map[string]interface{}{
		"intent_id":   intent.ID,
		"designer_id": intent.DesignerID,
		"date_time":   intent.DateTime.Format(time.RFC3339),
		"expires_at":  intent.ExpiresAt.Format(time.RFC3339),
	}
	return a.LogEvent(ctx, "hold.acquired", intent.UserID, data)
}

func (a *AuditLogger) LogSession(ctx context.Context, userID uuid.UUID, session domain.PaymentSession) error {
	data := map[string]interface{}{
		"session_id": session.ID,
		"method":     session.Method,
		"amount":     session.Amount,
	}
	return a.LogEvent(ctx, "payment.session_opened", userID, data)
}

func (a *AuditLogger) LogReservation(ctx context.Context, res domain.Reservation) error {
	data := map[string]interface{}{
		"reservation_id": res.ID,
		"designer_id":    res.DesignerID,
		"status":         res.Status,
		"fee":            res.Fee,
	}
	return a.LogEvent(ctx, "reservation.committed", res.UserID, data)
}
