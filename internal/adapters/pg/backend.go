package pg

import (
	"context"
	"encoding/json"
	"time"

	redisadapter "github.com/blisslabs/consulting-reservations/internal/adapters/redis"
	"github.com/blisslabs/consulting-reservations/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Backend is the reservation backend: Redis slot locks for fast conflict
// rejection in front of the durable intent rows, and transactional reservation
// commits with an outbox row.
type Backend struct {
	repo    *Repository
	cache   *redisadapter.Cache
	holdTTL time.Duration
}

func NewBackend(repo *Repository, cache *redisadapter.Cache, holdTTL time.Duration) *Backend {
	return &Backend{repo: repo, cache: cache, holdTTL: holdTTL}
}

func slotKey(dateTime time.Time) string {
	return dateTime.UTC().Format(time.RFC3339)
}

func (b *Backend) HoldSlot(ctx context.Context, designerID, userID uuid.UUID, dateTime time.Time) (domain.ReservationIntent, error) {
	intent := domain.NewIntent(designerID, userID, dateTime, b.holdTTL)

	ok, err := b.cache.SetSlotLock(ctx, designerID.String(), slotKey(dateTime), userID.String(), b.holdTTL)
	if err != nil {
		return domain.ReservationIntent{}, err
	}
	if !ok {
		return domain.ReservationIntent{}, domain.ErrConflict
	}

	err = b.repo.WithTx(ctx, func(tx pgx.Tx) error {
		return b.repo.CreateIntent(ctx, tx, intent)
	})
	if err != nil {
		b.cache.DeleteSlotLock(ctx, designerID.String(), slotKey(dateTime))
		return domain.ReservationIntent{}, err
	}
	return intent, nil
}

func (b *Backend) CreateReservation(ctx context.Context, res domain.Reservation) error {
	return b.repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := b.repo.CreateReservation(ctx, tx, res); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"reservation_id": res.ID,
			"designer_id":    res.DesignerID,
			"user_id":        res.UserID,
			"status":         res.Status,
		})
		eventType := "reservation.confirmed"
		if res.Status == domain.ReservationAwaitingPayment {
			eventType = "reservation.awaiting_payment"
		}
		return b.repo.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "reservation",
			AggregateID:   res.ID,
			EventType:     eventType,
			Payload:       payload,
			DedupeKey:     res.ID.String(),
		})
	})
}

func (b *Backend) ListReservations(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	return b.repo.ListReservations(ctx, userID)
}
