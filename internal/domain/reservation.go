package domain

import (
	"time"

	"github.com/google/uuid"
)

func NewIntent(designerID, userID uuid.UUID, dateTime time.Time, ttl time.Duration) ReservationIntent {
	return ReservationIntent{
		ID:         uuid.New(),
		DesignerID: designerID,
		UserID:     userID,
		DateTime:   dateTime,
		ExpiresAt:  time.Now().Add(ttl),
	}
}

// NewReservation builds the commit payload from a pending transaction record.
// Bank transfers start awaiting payment; gateway payments are confirmed at
// commit time because the gateway has already reported success.
func NewReservation(rec PendingTransactionRecord, userID uuid.UUID) Reservation {
	status := ReservationConfirmed
	if rec.Method == MethodBank {
		status = ReservationAwaitingPayment
	}
	return Reservation{
		ID:               uuid.New(),
		IntentID:         rec.IntentID,
		DesignerID:       rec.Draft.DesignerID,
		UserID:           userID,
		DateTime:         rec.Draft.DateTime,
		Fee:              rec.Draft.Price,
		Mode:             rec.Draft.Mode,
		PaymentID:        rec.SessionID,
		TransactionToken: rec.TransactionToken,
		Status:           status,
	}
}
